// Package epubcover locates and extracts the cover image of an ePub file.
//
// An ePub is a ZIP archive whose META-INF/container.xml names an OPF package
// document. The resolver reads that document and tries, in order, the cover
// conventions used by real-world producers, each looser than the last:
//
//  1. ePub 2 <meta name="cover" content="ID"/> pointing at a manifest item
//     (an XHTML cover page is followed to the image it shows)
//  2. a manifest image with properties="cover-image" or an ID containing "cover"
//  3. the first image in the manifest
//
// The winning href is resolved against the OPF directory and the entry is
// returned as a [Cover]:
//
//	cover, err := epubcover.ResolveFile("book.epub")
//	if err != nil {
//	    log.Printf("no cover: %s", epubcover.ReasonOf(err))
//	    return
//	}
//	fmt.Println(cover.MediaType, len(cover.Data))
//	img.Src = cover.DataURI()
//
// # Error Handling
//
// Malformed or incomplete ePubs are never a crash. Every failure is a
// [*NotFoundError] carrying a [Reason], and matches one sentinel via errors.Is:
//   - [ErrArchiveOpenFailure] – the input is not a readable ZIP
//   - [ErrContainerNotFound] – META-INF/container.xml is missing or unparsable
//   - [ErrPackageDocumentNotFound] – no rootfile, or the OPF is not in the archive
//   - [ErrMalformedPackageDocument] – the OPF is not valid XML
//   - [ErrCoverNotFound] – no manifest item matched any rule
//   - [ErrCoverEntryMissing] – the chosen href is not in the archive
//   - [ErrCoverEncrypted] – the chosen entry is DRM encrypted
//
// [ReadMetadata] exposes the titles and authors from the same package
// document for labelling books.
package epubcover
