package styles

// Status glyphs shared by doctor and run output.
var (
	IconPass = "✔"
	IconWarn = "●"
	IconFail = "✘"
	IconSkip = "○"
)
