package xmlenc

import "github.com/sirupsen/logrus"

// DebugDump logs a human-readable summary of the context's current state
// at Debug level, the Go equivalent of xmlSecEncCtxDebugDump (which wrote
// to a FILE*; this engine routes the same information through the
// teacher's structured-logging stack instead of stdout).
func (c *EncCtx) DebugDump() {
	fields := logrus.Fields{
		"mode":      c.modeString(),
		"encrypt":   c.Encrypt,
		"id":        c.ID,
		"type":      c.Type,
		"mimeType":  c.MimeType,
		"encoding":  c.Encoding,
		"recipient": c.Recipient,
	}
	if c.encMethod != nil {
		fields["algorithm"] = c.encMethod.ID()
	}
	c.Log.WithFields(fields).Debug("encryption context state")
}

// DebugXMLDump logs the same state as a structured (field-per-attribute)
// entry instead of free text, mirroring xmlSecEncCtxDebugXmlDump's
// machine-readable variant.
func (c *EncCtx) DebugXMLDump() {
	c.Log.WithFields(logrus.Fields{
		"xmlenc.mode":      c.modeString(),
		"xmlenc.id":        c.ID,
		"xmlenc.type":      c.Type,
		"xmlenc.mimeType":  c.MimeType,
		"xmlenc.encoding":  c.Encoding,
		"xmlenc.recipient": c.Recipient,
	}).Debug("xmlenc-context")
}

func (c *EncCtx) modeString() string {
	if c.Mode == ModeEncryptedKey {
		return "EncryptedKey"
	}
	return "EncryptedData"
}

// Result returns the plaintext or ciphertext bytes this operation
// produced, once it has completed.
func (c *EncCtx) Result() ([]byte, bool) { return c.result, c.resultIsSet }
