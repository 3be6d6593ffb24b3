package ui

const (
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	Gray    = "\033[90m" // Bright black, often appears as gray

	RedInverse    = "\033[7;31m"
	GreenInverse  = "\033[7;32m"
	YellowInverse = "\033[7;33m"
	BlueInverse   = "\033[7;34m"

	ResetColor = "\033[0m"
)

var MethodColors = map[string]string{
	"GET":    Green,
	"POST":   Blue,
	"PUT":    Cyan,
	"DELETE": Yellow,
	"PATCH":  Magenta,
}

// Colorize wraps s in color unless plain output was requested.
func Colorize(color, s string, plain bool) string {
	if plain || color == "" {
		return s
	}
	return color + s + ResetColor
}
