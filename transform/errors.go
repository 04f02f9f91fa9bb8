package transform

import "github.com/readium/xmlenc/errs"

func unknownAlgorithm(id string) error {
	return errs.New(component, errs.KindInvalidType, "unknown algorithm: "+id)
}
