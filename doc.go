// Package comicrepack repacks comic and manga e-books into fixed-layout
// Kindle books sized for a specific device.
//
// Each input container (.mobi, .azw3 or .epub) is unpacked into a private
// working directory, its page images are recovered in reading order, blank
// filler pages are dropped, and every remaining page is letterboxed onto the
// device viewport before the book is rebuilt and compiled with KindleGen.
//
// # Spine resolution
//
// [FindPackageDescription] locates the package description (.opf) of an
// extracted tree, through META-INF/container.xml when present and otherwise
// by walking the tree. [OpenPackage] parses it, falling back to a permissive
// scan when the document is not well-formed, and [Package.Images] follows the
// spine through each XHTML fragment to the images it references:
//
//	opf, err := comicrepack.FindPackageDescription(dir)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	images, md, err := comicrepack.Resolve(opf)
//
// Images are returned as absolute paths, first occurrence wins, and
// references to files that do not exist are skipped.
//
// # Blank pages
//
// A [Classifier] rejects a page that is too small, almost entirely white,
// flat in its centre, or dominated by one large ink blob. Thresholds live in
// [BlankThresholds] and are part of every [Profile]. A page the classifier
// cannot evaluate is kept.
//
// # Composition
//
// [Compose] scales a grayscale page uniformly to fit the viewport and centres
// it on a white canvas of exactly the viewport size.
//
// # Pipeline
//
// A [Pipeline] ties the stages together for one document
// ([Pipeline.ProcessDocument]) or many ([Pipeline.RunBatch]). Extraction and
// compilation are pluggable through the [Extractor] and [Compiler] interfaces;
// the defaults sniff the container type and shell out to an unpacker and to
// kindlegen. Documents fail independently; page failures only drop the page.
//
// # Errors
//
// Failures wrap the sentinel errors in errors.go, so callers can test them
// with [errors.Is]:
//
//	if errors.Is(err, comicrepack.ErrDRMProtected) {
//	    // skip protected book
//	}
package comicrepack
