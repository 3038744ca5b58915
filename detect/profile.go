package detect

import "github.com/charmbracelet/colorprofile"

// ColorProfile adapts a Result's capability set to charmbracelet's
// colorprofile.Profile enum, for hosts that hand detection results to other
// charm-ecosystem rendering libraries rather than this package's own
// Renderer.
func (r Result) ColorProfile() colorprofile.Profile {
	switch {
	case r.Capability.Has(TruecolorYes) || r.Capability.Has(TruecolorMaybe):
		return colorprofile.TrueColor
	case r.Capability.Has(Color88):
		return colorprofile.ANSI256
	case r.Family == FamilyTooDumb || r.Family == FamilyIncompatible:
		return colorprofile.Ascii
	default:
		return colorprofile.ANSI
	}
}
