package wizard

import "github.com/kode4food/signwiz/pkg/api"

// Layout positions each recipient's stamp, text field and post info on the
// signing page, in PDF points from the top-left corner
type Layout struct {
	X          float64
	Y          float64
	Width      float64
	Height     float64
	Gap        float64
	TextWidth  float64
	TextHeight float64
}

// DefaultLayout stacks recipients down the left margin of the page
var DefaultLayout = Layout{
	X:          50,
	Y:          80,
	Width:      150,
	Height:     60,
	Gap:        20,
	TextWidth:  150,
	TextHeight: 20,
}

// Place returns one stamp, text field and post info entry per recipient on
// the last page of the document
func (l Layout) Place(
	emails []string, pages int,
) (stamps, text, post []api.Placement) {
	page := max(pages, 1)
	stamps = make([]api.Placement, 0, len(emails))
	text = make([]api.Placement, 0, len(emails))
	post = make([]api.Placement, 0, len(emails))

	for i, email := range emails {
		y := l.Y + float64(i)*(l.Height+l.Gap)
		stamps = append(stamps, api.Placement{
			Email:      email,
			PageNumber: page,
			X:          l.X,
			Y:          y,
			Width:      l.Width,
			Height:     l.Height,
		})
		text = append(text, api.Placement{
			Email:      email,
			PageNumber: page,
			X:          l.X + l.Width + l.Gap,
			Y:          y,
			Width:      l.TextWidth,
			Height:     l.TextHeight,
		})
		post = append(post, api.Placement{
			Email:      email,
			PageNumber: page,
			X:          l.X + l.Width + l.Gap,
			Y:          y + l.TextHeight + l.Gap/2,
			Width:      l.TextWidth,
			Height:     l.TextHeight,
		})
	}
	return stamps, text, post
}
