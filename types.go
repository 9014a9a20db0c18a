package comicrepack

import "time"

// Metadata holds the descriptive metadata carried into the rebuilt document.
type Metadata struct {
	// Title is the book title. The pipeline derives it from the input file name.
	Title string

	// Creator is the first dc:creator value of the source package, trimmed.
	Creator string

	// Publisher is the first dc:publisher value of the source package, trimmed.
	Publisher string

	// Language is the first dc:language value of the source package, trimmed.
	Language string
}

// PageRecord describes one page that survived classification and was encoded
// into the working directory.
type PageRecord struct {
	// Index is the zero-based position of the page in the rebuilt reading
	// order. Indices are contiguous; dropped pages leave no gaps.
	Index int

	// Source is the absolute path of the original image asset.
	Source string

	// Image is the file name of the encoded page (e.g., "page_0003.jpg").
	Image string

	// Markup is the file name of the per-page XHTML fragment (e.g., "page_0003.html").
	Markup string

	// Width and Height are the canvas dimensions, equal to the viewport.
	Width  int
	Height int
}

// PageStats counts the outcome of the per-page loop for one document.
type PageStats struct {
	// Kept is the number of pages encoded.
	Kept int

	// Blank is the number of pages dropped by the classifier.
	Blank int

	// Failed is the number of pages dropped because they could not be
	// decoded, composited or encoded.
	Failed int
}

// Dropped returns the total number of pages removed from the document.
func (s PageStats) Dropped() int { return s.Blank + s.Failed }

// DocumentResult is the outcome of processing one input document.
type DocumentResult struct {
	// Input is the path of the input container.
	Input string

	// Output is the final path of the compiled document. Empty on failure.
	Output string

	// OutputSize is the size in bytes of the compiled document.
	OutputSize int64

	// Metadata is the metadata written into the rebuilt package.
	Metadata Metadata

	// Pages lists the surviving pages in final reading order.
	Pages []PageRecord

	// Stats summarises kept and dropped pages.
	Stats PageStats

	// Duration is the wall-clock processing time.
	Duration time.Duration

	// Err is the document-level failure, if any.
	Err error
}

// manifestItem represents an entry in the OPF <manifest> element.
type manifestItem struct {
	// ID is the identifier of this manifest item.
	ID string

	// Href is the file path relative to the OPF file location.
	Href string

	// MediaType is the MIME type of the resource.
	MediaType string

	// Properties contains space-separated property values (ePub 3, e.g., "cover-image").
	Properties string
}

// spineItem represents an entry in the OPF <spine> element whose idref
// resolved to a manifest item.
type spineItem struct {
	// IDRef is the idref attribute value from the <itemref> element.
	IDRef string

	// Href is the manifest href of the referenced fragment.
	Href string
}
