package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// curveSegments is how many straight segments approximate one cubic curve
const curveSegments = 24

// ErrInvalidPath is returned for SVG path data that cannot be flattened
var ErrInvalidPath = errors.New("invalid svg path")

type xy struct{ x, y float64 }

// flattenPath converts SVG path data using M, L, H, V, C and Z commands
// (absolute or relative) into a polyline.
func flattenPath(d string) ([]xy, error) {
	tokens := tokenize(d)
	var (
		points      []xy
		cur, start  xy
		cmd         rune
		haveCommand bool
	)

	next := func(i *int) (float64, error) {
		if *i >= len(tokens) {
			return 0, fmt.Errorf("%w: missing coordinate after %q", ErrInvalidPath, string(cmd))
		}
		v, err := strconv.ParseFloat(tokens[*i], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidPath, tokens[*i])
		}
		*i++
		return v, nil
	}
	pair := func(i *int, relative bool) (xy, error) {
		x, err := next(i)
		if err != nil {
			return xy{}, err
		}
		y, err := next(i)
		if err != nil {
			return xy{}, err
		}
		if relative {
			return xy{cur.x + x, cur.y + y}, nil
		}
		return xy{x, y}, nil
	}

	for i := 0; i < len(tokens); {
		if r := rune(tokens[i][0]); unicode.IsLetter(r) {
			cmd = r
			haveCommand = true
			i++
		} else if !haveCommand {
			return nil, fmt.Errorf("%w: path must start with a command", ErrInvalidPath)
		}

		relative := unicode.IsLower(cmd)
		switch unicode.ToUpper(cmd) {
		case 'M':
			p, err := pair(&i, relative)
			if err != nil {
				return nil, err
			}
			cur, start = p, p
			points = append(points, p)
			// further pairs after a moveto are implicit linetos
			if relative {
				cmd = 'l'
			} else {
				cmd = 'L'
			}
		case 'L':
			p, err := pair(&i, relative)
			if err != nil {
				return nil, err
			}
			cur = p
			points = append(points, p)
		case 'H':
			x, err := next(&i)
			if err != nil {
				return nil, err
			}
			if relative {
				x += cur.x
			}
			cur = xy{x, cur.y}
			points = append(points, cur)
		case 'V':
			y, err := next(&i)
			if err != nil {
				return nil, err
			}
			if relative {
				y += cur.y
			}
			cur = xy{cur.x, y}
			points = append(points, cur)
		case 'C':
			c1, err := pair(&i, relative)
			if err != nil {
				return nil, err
			}
			c2, err := pair(&i, relative)
			if err != nil {
				return nil, err
			}
			end, err := pair(&i, relative)
			if err != nil {
				return nil, err
			}
			points = append(points, cubic(cur, c1, c2, end)...)
			cur = end
		case 'Z':
			cur = start
			points = append(points, start)
			haveCommand = false
		default:
			return nil, fmt.Errorf("%w: unsupported command %q", ErrInvalidPath, string(cmd))
		}
	}

	if len(points) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 points, got %d", ErrInvalidPath, len(points))
	}
	return points, nil
}

// cubic samples a cubic Bezier curve, excluding its start point.
func cubic(p0, p1, p2, p3 xy) []xy {
	out := make([]xy, 0, curveSegments)
	for s := 1; s <= curveSegments; s++ {
		t := float64(s) / curveSegments
		u := 1 - t
		a, b, c, d := u*u*u, 3*u*u*t, 3*u*t*t, t*t*t
		out = append(out, xy{
			x: a*p0.x + b*p1.x + c*p2.x + d*p3.x,
			y: a*p0.y + b*p1.y + c*p2.y + d*p3.y,
		})
	}
	return out
}

// tokenize splits path data into command letters and number literals.
func tokenize(d string) []string {
	var (
		tokens []string
		b      strings.Builder
	)
	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}

	for _, r := range d {
		switch {
		case unicode.IsLetter(r) && r != 'e' && r != 'E':
			flush()
			tokens = append(tokens, string(r))
		case r == ',' || unicode.IsSpace(r):
			flush()
		case r == '-' && b.Len() > 0 && !strings.HasSuffix(b.String(), "e") && !strings.HasSuffix(b.String(), "E"):
			flush()
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return tokens
}
