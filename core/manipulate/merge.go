package manipulate

import (
	"fmt"

	"seehuhn.de/go/geom/rect"

	"github.com/benedoc-inc/pdfwm/core/asset"
	"github.com/benedoc-inc/pdfwm/core/cover"
	"github.com/benedoc-inc/pdfwm/core/parse"
	"github.com/benedoc-inc/pdfwm/core/write"
	"github.com/benedoc-inc/pdfwm/types"
)

// MergeOverlay composites ov on top of the page at index. The overlay is
// drawn in the page's visual space and mapped onto its box through the
// page rotation. The original content is wrapped in q/Q so that its
// graphics state cannot leak into the overlay.
//
// Calling MergeOverlay twice on the same page stamps it twice.
func (d *Document) MergeOverlay(index int, ov *cover.OverlayPage) error {
	page, err := d.Page(index)
	if err != nil {
		return err
	}
	if ov == nil || ov.Asset == nil {
		return fmt.Errorf("page %d: overlay has no image", index+1)
	}

	// Everything that can fail runs before the page gains a reference to
	// the overlay, so a page that fails to merge is left as it was.
	original, err := d.contents(page.dict)
	if err != nil {
		return types.WrapErrorf(types.ErrCodeMalformedPDF, err, "page %d contents", index+1)
	}
	resources, err := d.ownedDict(page.dict, "Resources")
	if err != nil {
		return types.WrapErrorf(types.ErrCodeMalformedPDF, err, "page %d resources", index+1)
	}
	xobjects, err := d.ownedDict(resources, "XObject")
	if err != nil {
		return types.WrapErrorf(types.ErrCodeMalformedPDF, err, "page %d XObject resources", index+1)
	}
	imgNum, err := d.embedImage(ov.Asset)
	if err != nil {
		return err
	}

	formResources := parse.Dict{
		"XObject": parse.Dict{ov.ImageName: parse.Reference{Number: imgNum}},
	}
	if ov.Translucent() {
		formResources["ExtGState"] = parse.Dict{
			cover.StateResource: parse.Reference{Number: d.extGState(ov.Opacity)},
		}
	}
	formNum := d.writer.AddFormXObject(rect.Rect{URx: ov.Width, URy: ov.Height}, formResources, ov.Content)
	name := uniqueName(xobjects, "Wm")
	xobjects[name] = parse.Reference{Number: formNum}

	cs := write.NewContentStream()
	cs.RestoreState()
	cs.SaveState()
	cs.Transform(page.Geometry.VisualToUser())
	cs.DrawXObject(name)
	cs.RestoreState()
	suffix := d.writer.AddStreamObject(nil, cs.Bytes(), true)

	contents := make(parse.Array, 0, len(original)+2)
	contents = append(contents, parse.Reference{Number: d.prefixStream()})
	contents = append(contents, original...)
	contents = append(contents, parse.Reference{Number: suffix})
	page.dict["Contents"] = contents

	page.Overlays++
	d.log.Debug().
		Int("page", index+1).
		Str("xobject", string(name)).
		Int("rotate", page.Geometry.Rotation).
		Msg("overlay merged")
	return nil
}

// embedImage adds the asset's image once per document
func (d *Document) embedImage(a *asset.Asset) (int, error) {
	if num, ok := d.images[a]; ok {
		return num, nil
	}
	info, err := d.writer.AddImage(a.Data)
	if err != nil {
		return 0, types.WrapErrorf(types.ErrCodeAssetLoad, err, "watermark %s", a.Class).
			WithContext("path", a.Path)
	}
	d.images[a] = info.ObjectNum
	return info.ObjectNum, nil
}

func (d *Document) extGState(alpha float64) int {
	if num, ok := d.states[alpha]; ok {
		return num
	}
	num := d.writer.AddExtGState(alpha)
	d.states[alpha] = num
	return num
}

// prefixStream returns the shared stream that opens the q/Q pair around
// original page content
func (d *Document) prefixStream() int {
	if d.prefix == 0 {
		d.prefix = d.writer.AddStreamObject(nil, write.NewContentStream().SaveState().Bytes(), false)
	}
	return d.prefix
}

// ownedDict returns parent[key] as a direct dictionary that only this page
// uses. Indirect dictionaries are copied so that edits do not reach other
// pages sharing them.
func (d *Document) ownedDict(parent parse.Dict, key parse.Name) (parse.Dict, error) {
	switch v := parent[key].(type) {
	case nil:
		dict := parse.Dict{}
		parent[key] = dict
		return dict, nil
	case parse.Dict:
		return v, nil
	case parse.Reference:
		obj, err := d.pdf.Resolve(v)
		if err != nil {
			return nil, err
		}
		var dict parse.Dict
		switch r := obj.(type) {
		case nil:
			dict = parse.Dict{}
		case parse.Dict:
			dict = copyDict(r)
		default:
			return nil, fmt.Errorf("/%s is %T, not a dictionary", key, obj)
		}
		parent[key] = dict
		return dict, nil
	default:
		return nil, fmt.Errorf("/%s is %T, not a dictionary", key, v)
	}
}

// contents returns the page's content streams as an array of references
func (d *Document) contents(page parse.Dict) (parse.Array, error) {
	switch v := page["Contents"].(type) {
	case nil:
		return nil, nil
	case parse.Array:
		return v, nil
	case parse.Reference:
		obj, err := d.pdf.Resolve(v)
		if err != nil {
			return nil, err
		}
		switch r := obj.(type) {
		case nil:
			return nil, nil
		case parse.Array:
			return copyValue(r).(parse.Array), nil
		}
		return parse.Array{v}, nil
	default:
		return nil, fmt.Errorf("/Contents is %T", v)
	}
}

func uniqueName(dict parse.Dict, base string) parse.Name {
	for i := 1; ; i++ {
		name := parse.Name(fmt.Sprintf("%s%d", base, i))
		if _, taken := dict[name]; !taken {
			return name
		}
	}
}
