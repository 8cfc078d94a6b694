//go:build oxyrelease

package foam

func (m *Foam) checkMaterial() {}
