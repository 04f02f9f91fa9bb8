package transform

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/readium/xmlenc/dom"
	"github.com/readium/xmlenc/errs"
)

// S3StaticCredentials, when non-nil, pins the access key pair fetchS3
// presents to AWS instead of falling back to the default provider chain
// (environment, shared config, instance role). Set it once at startup for
// deployments that configure S3 access explicitly rather than relying on
// ambient credentials.
var S3StaticCredentials *credentials.StaticCredentialsProvider

// URIType classifies a CipherReference/ds:Reference URI into the class
// bitset allowedCipherReferenceUris is checked against, mirroring
// xmlSecTransformUriType. This engine extends the base four classes
// (empty, same-doc, local, remote) from spec.md with a fifth, CID, to
// satisfy the engine's MIME Content-ID attachment scenario (S5): a
// "remote" URI allowance alone does not implicitly grant "cid:" access,
// since CID references point at sibling MIME parts rather than the
// network.
type URIType uint

const (
	URITypeEmpty URIType = 1 << iota
	URITypeSameDoc
	URITypeLocal
	URITypeRemote
	URITypeCID
)

// URITypeAny allows every URI class.
const URITypeAny = URITypeEmpty | URITypeSameDoc | URITypeLocal | URITypeRemote | URITypeCID

// ClassifyURI determines which URIType bit uri belongs to.
func ClassifyURI(uri string) URIType {
	switch {
	case uri == "":
		return URITypeEmpty
	case strings.HasPrefix(uri, "#"):
		return URITypeSameDoc
	case strings.HasPrefix(uri, "cid:"):
		return URITypeCID
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"), strings.HasPrefix(uri, "s3://"):
		return URITypeRemote
	default:
		return URITypeLocal
	}
}

// CheckURIType reports whether uri's class is permitted by allowed,
// mirroring xmlSecUriTypeCheck.
func CheckURIType(allowed URIType, uri string) bool {
	return allowed&ClassifyURI(uri) != 0
}

// AttachmentResolver fetches the bytes referenced by a cid: URI, standing
// in for a MIME multipart container's Content-ID lookup; the engine
// itself has no message-container model, so this is left to the caller.
type AttachmentResolver func(ctx context.Context, contentID string) ([]byte, error)

// Fetch dereferences uri and returns its bytes. base provides the
// same-document ID index for "#fragment" URIs. attachments resolves
// cid: URIs when non-nil.
func Fetch(ctx context.Context, uri string, base *dom.Element, attachments AttachmentResolver) ([]byte, error) {
	switch ClassifyURI(uri) {
	case URITypeSameDoc:
		return fetchSameDoc(uri, base)
	case URITypeCID:
		if attachments == nil {
			return nil, errs.New(component, errs.KindInvalidURIType, "no attachment resolver configured for cid: URI")
		}
		return attachments(ctx, strings.TrimPrefix(uri, "cid:"))
	case URITypeRemote:
		return fetchRemote(ctx, uri)
	case URITypeLocal:
		return fetchLocal(uri)
	default:
		return nil, errs.New(component, errs.KindInvalidURIType, "empty URI cannot be fetched")
	}
}

func fetchSameDoc(uri string, base *dom.Element) ([]byte, error) {
	if base == nil {
		return nil, errs.New(component, errs.KindInvalidNode, "no document context for same-document URI")
	}
	doc := base.OwnerDocument()
	if doc == nil {
		return nil, errs.New(component, errs.KindInvalidNode, "element has no owning document")
	}
	target, ok := doc.ResolveID(strings.TrimPrefix(uri, "#"))
	if !ok {
		return nil, errs.New(component, errs.KindInvalidURIType, "unresolved same-document fragment: "+uri)
	}
	return target.Serialize()
}

func fetchLocal(uri string) ([]byte, error) {
	path := strings.TrimPrefix(uri, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(component, errs.KindIO, "reading local CipherReference target", err)
	}
	return data, nil
}

func fetchRemote(ctx context.Context, uri string) ([]byte, error) {
	if strings.HasPrefix(uri, "s3://") {
		return fetchS3(ctx, uri)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, errs.Wrap(component, errs.KindInvalidData, "building HTTP request", err)
	}
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errs.Wrap(component, errs.KindIO, "fetching remote CipherReference target", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errs.New(component, errs.KindIO, "remote CipherReference target returned "+resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(component, errs.KindIO, "reading remote CipherReference response", err)
	}
	return data, nil
}

func fetchS3(ctx context.Context, uri string) ([]byte, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return nil, errs.Wrap(component, errs.KindInvalidData, "parsing s3:// URI", err)
	}
	bucket := parsed.Host
	key := strings.TrimPrefix(parsed.Path, "/")
	var opts []func(*config.LoadOptions) error
	if S3StaticCredentials != nil {
		opts = append(opts, config.WithCredentialsProvider(*S3StaticCredentials))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errs.Wrap(component, errs.KindIO, "loading AWS configuration", err)
	}
	client := s3.NewFromConfig(cfg)
	out, err := client.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return nil, errs.Wrap(component, errs.KindIO, "fetching S3 CipherReference target", err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errs.Wrap(component, errs.KindIO, "reading S3 object body", err)
	}
	return data, nil
}
