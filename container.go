package epubcover

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// containerXML models the META-INF/container.xml file used to locate the OPF.
type containerXML struct {
	XMLName   xml.Name   `xml:"container"`
	RootFiles []rootFile `xml:"rootfiles>rootfile"`
}

// rootFile represents a single <rootfile> element inside container.xml.
type rootFile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

// containerPath is the well-known location of container.xml in an ePub archive.
const containerPath = "META-INF/container.xml"

// locatePackage reads container.xml and returns the full-path of its first
// rootfile. A missing or unparsable container.xml is ErrContainerNotFound;
// a container without a usable rootfile is ErrPackageDocumentNotFound.
func locatePackage(a *archive) (string, error) {
	f := a.find(containerPath)
	if f == nil {
		return "", notFound(ReasonContainerNotFound, nil)
	}

	data, err := readZipFile(f)
	if err != nil {
		return "", notFound(ReasonContainerNotFound, fmt.Errorf("read container.xml: %w", err))
	}

	return parseContainerXML(data)
}

// parseContainerXML decodes container.xml content. Only the first rootfile
// is considered.
func parseContainerXML(data []byte) (string, error) {
	data = stripBOM(data)

	var c containerXML
	if err := xml.Unmarshal(data, &c); err != nil {
		return "", notFound(ReasonContainerNotFound, fmt.Errorf("parse container.xml: %w", err))
	}

	if len(c.RootFiles) == 0 {
		return "", notFound(ReasonPackageDocumentNotFound, fmt.Errorf("container.xml has no rootfile entries"))
	}

	fullPath := strings.TrimSpace(c.RootFiles[0].FullPath)
	if fullPath == "" {
		return "", notFound(ReasonPackageDocumentNotFound, fmt.Errorf("container.xml rootfile has empty full-path"))
	}

	return fullPath, nil
}
