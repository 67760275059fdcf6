package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrInvalid = errors.New("invalid display settings")

const (
	BackgroundNone    = "none"
	BackgroundBuiltin = "builtin"
	BackgroundURL     = "url"

	SizeCover   = "cover"
	SizeContain = "contain"
	SizeStretch = "stretch"
	SizeTile    = "tile"
)

// Builtins are the stock panel backgrounds selectable by name.
var Builtins = map[string]string{
	"ocean": "https://images.unsplash.com/photo-1507525428034-b723cf961d3e",
	"sand":  "https://images.unsplash.com/photo-1501785888041-af3ef285b470",
	"stone": "https://images.unsplash.com/photo-1501785888041-af3ef285b471",
}

// Settings are the cosmetic panel preferences. They never affect the counts.
type Settings struct {
	BackgroundType  string  `json:"backgroundType"`
	BackgroundValue string  `json:"backgroundValue"`
	Opacity         float64 `json:"opacity"`
	Size            string  `json:"size"`
}

func Defaults() Settings {
	return Settings{
		BackgroundType:  BackgroundNone,
		BackgroundValue: "",
		Opacity:         0.6,
		Size:            SizeCover,
	}
}

// Decode merges a stored blob over the defaults. Anything unreadable yields the defaults.
func Decode(raw []byte) Settings {
	s := Defaults()
	if len(raw) == 0 {
		return s
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return Defaults()
	}
	s.Normalize()
	return s
}

func (s *Settings) Normalize() {
	s.BackgroundType = strings.ToLower(strings.TrimSpace(s.BackgroundType))
	s.BackgroundValue = strings.TrimSpace(s.BackgroundValue)
	s.Size = strings.ToLower(strings.TrimSpace(s.Size))
	if s.BackgroundType == "" {
		s.BackgroundType = BackgroundNone
	}
	if s.Size == "" {
		s.Size = SizeCover
	}
	if math.IsNaN(s.Opacity) {
		s.Opacity = Defaults().Opacity
	}
	s.Opacity = math.Max(0, math.Min(1, s.Opacity))
}

func (s Settings) Validate() error {
	switch s.BackgroundType {
	case BackgroundNone:
	case BackgroundBuiltin:
		if _, ok := Builtins[s.BackgroundValue]; !ok {
			return fmt.Errorf("%w: unknown builtin background %q", ErrInvalid, s.BackgroundValue)
		}
	case BackgroundURL:
		v := strings.ToLower(s.BackgroundValue)
		if !strings.HasPrefix(v, "https://") && !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "data:image/") {
			return fmt.Errorf("%w: background url must be http(s) or data:image", ErrInvalid)
		}
		if strings.ContainsAny(s.BackgroundValue, "\"'()\\\n") {
			return fmt.Errorf("%w: background url contains forbidden characters", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: background type %q", ErrInvalid, s.BackgroundType)
	}
	switch s.Size {
	case SizeCover, SizeContain, SizeStretch, SizeTile:
	default:
		return fmt.Errorf("%w: size %q", ErrInvalid, s.Size)
	}
	if s.Opacity < 0 || s.Opacity > 1 {
		return fmt.Errorf("%w: opacity %v outside [0,1]", ErrInvalid, s.Opacity)
	}
	return nil
}

// ImageURL resolves the background image, or "" when none applies.
func (s Settings) ImageURL() string {
	switch s.BackgroundType {
	case BackgroundBuiltin:
		return Builtins[s.BackgroundValue]
	case BackgroundURL:
		return s.BackgroundValue
	default:
		return ""
	}
}
