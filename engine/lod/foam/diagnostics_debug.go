//go:build !oxyrelease

package foam

// checkMaterial warns once if the foam would not be visible on the ocean material.
func (m *Foam) checkMaterial() {
	k := m.materialKeywords()
	if k == nil || k.IsKeywordEnabled(FoamKeyword) {
		return
	}
	if m.warned.CompareAndSwap(false, true) {
		m.Logger().Warn("Foam is not enabled on the current ocean material and will not be visible.")
	}
}
