// Package pdfwm stamps a full-page watermark onto PDF documents, choosing
// one of four images by the paper size and orientation of each page.
//
// # Quick Start
//
// Watermark one document:
//
//	import "github.com/benedoc-inc/pdfwm/core/asset"
//	import "github.com/benedoc-inc/pdfwm/core/classify"
//	import "github.com/benedoc-inc/pdfwm/core/stamp"
//
//	table, _ := asset.NewTable(map[classify.SizeClass]string{
//		classify.A4Portrait:  "wm_a4_portrait.png",
//		classify.A4Landscape: "wm_a4_landscape.png",
//		classify.F4Portrait:  "wm_f4_portrait.png",
//		classify.F4Landscape: "wm_f4_landscape.png",
//	}, "")
//	stamper := stamp.New(asset.NewStore(table, logger), stamp.Options{}, logger)
//	out, report, err := stamper.StampDocument(ctx, pdfBytes)
//
// # Packages
//
//   - classify: page geometry and A4/F4 size classes
//   - asset: watermark table and cached image loading
//   - cover: cover-fit placement and overlay content
//   - manipulate: page tree access, overlay merge and output assembly
//   - stamp: the per-document pipeline
//   - batch: directory processing with per-file isolation
//   - parse, write: low-level PDF reading and writing
//   - types: error codes and warnings
package pdfwm

import "github.com/benedoc-inc/pdfwm/types"

// Version is the pdfwm release
const Version = "0.3.0"

// Error is the structured error returned by every pdfwm package.
type Error = types.PDFError

// ErrorCode identifies the kind of failure.
type ErrorCode = types.PDFErrorCode

// Warning is a non-fatal problem recorded while processing a document.
type Warning = types.Warning
