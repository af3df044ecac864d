package epubcover

import (
	"encoding/xml"
	"net/url"
	"strings"
)

// encryptionFilePath is the standard path for the encryption descriptor.
const encryptionFilePath = "META-INF/encryption.xml"

// Font obfuscation algorithm URIs – these do NOT constitute DRM.
var fontObfuscationAlgorithms = map[string]bool{
	"http://www.idpf.org/2008/embedding": true, // IDPF font obfuscation
	"http://ns.adobe.com/pdf/enc#RC":     true, // Adobe font obfuscation
}

// XML structures for parsing encryption.xml.

type xmlEncryption struct {
	XMLName       xml.Name           `xml:"encryption"`
	EncryptedData []xmlEncryptedData `xml:"EncryptedData"`
}

type xmlEncryptedData struct {
	EncryptionMethod xmlEncryptionMethod `xml:"EncryptionMethod"`
	CipherData       xmlCipherData       `xml:"CipherData"`
}

type xmlEncryptionMethod struct {
	Algorithm string `xml:"Algorithm,attr"`
}

type xmlCipherData struct {
	CipherReference xmlCipherReference `xml:"CipherReference"`
}

type xmlCipherReference struct {
	URI string `xml:"URI,attr"`
}

// encryptedEntries returns the lowercased archive paths that
// META-INF/encryption.xml marks as encrypted with anything other than font
// obfuscation (Adobe ADEPT, Readium LCP, ...). A missing or unparsable
// descriptor yields an empty set.
func encryptedEntries(a *archive) map[string]bool {
	f := a.find(encryptionFilePath)
	if f == nil {
		return nil
	}

	data, err := readZipFile(f)
	if err != nil {
		return nil
	}
	data = stripBOM(data)

	var enc xmlEncryption
	if err := xml.Unmarshal(data, &enc); err != nil {
		return nil
	}

	out := make(map[string]bool, len(enc.EncryptedData))
	for _, ed := range enc.EncryptedData {
		if fontObfuscationAlgorithms[strings.TrimSpace(ed.EncryptionMethod.Algorithm)] {
			continue
		}
		uri := strings.TrimSpace(ed.CipherData.CipherReference.URI)
		if uri == "" {
			continue
		}
		if decoded, err := url.PathUnescape(uri); err == nil {
			uri = decoded
		}
		// CipherReference URIs are relative to the container root.
		out[strings.ToLower(resolveHref("", uri))] = true
	}
	return out
}

// isEncrypted reports whether the entry at archivePath is DRM encrypted.
func isEncrypted(a *archive, archivePath string) bool {
	return encryptedEntries(a)[strings.ToLower(archivePath)]
}
