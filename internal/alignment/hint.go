package alignment

import (
	"strings"

	"golang.org/x/text/language"
)

// Locale selects the message catalogue used for guidance text.
type Locale string

const (
	LocaleEnglish Locale = "en"
	LocaleChinese Locale = "zh"
)

// hintDeadband is the center offset, as a fraction of the frame, below which
// no directional hint is given.
const hintDeadband = 0.02

const (
	tooSmallRatio = 0.85
	tooLargeRatio = 1.2
)

type catalogue struct {
	separator   string
	notDetected string
	matched     string
	good        string
	moveRight   string
	moveLeft    string
	lower       string
	raise       string
	closer      string
	stepBack    string
	steady      string
}

var catalogues = map[Locale]catalogue{
	LocaleEnglish: {
		separator:   ", ",
		notDetected: "vehicle not detected, move phone to frame the vehicle body",
		matched:     "position excellent, ready to capture",
		good:        "position good, hold steady",
		moveRight:   "move slightly right",
		moveLeft:    "move slightly left",
		lower:       "lower the camera slightly",
		raise:       "raise the camera slightly",
		closer:      "move closer to the vehicle",
		stepBack:    "step back",
		steady:      "hold steady, minor adjustment only",
	},
	LocaleChinese: {
		separator:   "，",
		notDetected: "未检测到车辆，请移动手机对准车身",
		matched:     "位置优秀，可以拍照",
		good:        "位置良好，保持稳定",
		moveRight:   "向右调整一点",
		moveLeft:    "向左调整一点",
		lower:       "稍微降低镜头",
		raise:       "稍微抬高镜头",
		closer:      "靠近车辆一些",
		stepBack:    "后退一步",
		steady:      "保持稳定，微调即可",
	},
}

var localeMatcher = language.NewMatcher([]language.Tag{
	language.English,
	language.Chinese,
})

// ParseLocale maps a BCP 47 tag or Accept-Language style string ("zh-CN",
// "en-US,en;q=0.8") onto a supported Locale. Anything unrecognised falls
// back to English.
func ParseLocale(s string) Locale {
	if s == "" {
		return LocaleEnglish
	}
	tags, _, err := language.ParseAcceptLanguage(s)
	if err != nil || len(tags) == 0 {
		return LocaleEnglish
	}
	_, index, confidence := localeMatcher.Match(tags...)
	if confidence == language.No {
		return LocaleEnglish
	}
	if index == 1 {
		return LocaleChinese
	}
	return LocaleEnglish
}

func (l Locale) catalogue() catalogue {
	if c, ok := catalogues[l]; ok {
		return c
	}
	return catalogues[LocaleEnglish]
}

// Hint builds the directional adjustment message for a frame.
//
// offsetX and offsetY are the detected center minus the expected center, so a
// positive offsetX means the vehicle sits right of the target and the user is
// told to move right; a positive offsetY means it sits below the target and the
// user is told to lower the camera. All applicable hints are joined in the
// order horizontal, vertical, distance.
func Hint(offsetX, offsetY, areaRatio float64, locale Locale) string {
	c := locale.catalogue()
	hints := make([]string, 0, 3)

	if offsetX > hintDeadband {
		hints = append(hints, c.moveRight)
	} else if offsetX < -hintDeadband {
		hints = append(hints, c.moveLeft)
	}

	if offsetY > hintDeadband {
		hints = append(hints, c.lower)
	} else if offsetY < -hintDeadband {
		hints = append(hints, c.raise)
	}

	if areaRatio < tooSmallRatio {
		hints = append(hints, c.closer)
	} else if areaRatio > tooLargeRatio {
		hints = append(hints, c.stepBack)
	}

	if len(hints) == 0 {
		return c.steady
	}
	return strings.Join(hints, c.separator)
}
