package param_id

// Shared per-dispatch parameter handles used by every simulation module.
var (
	SliceIndex     = PropertyToID("_LD_SliceIndex")
	PosScale       = PropertyToID("_LD_Pos_Scale")
	PosScaleSource = PropertyToID("_LD_Pos_Scale_Source")
	PosScaleSeed   = PropertyToID("_LD_Pos_Scale_Seed")
	Target         = PropertyToID("_LD_Target")
	SimDeltaTime   = PropertyToID("_SimDeltaTime")
	Time           = PropertyToID("_Time")
	HasSeed        = PropertyToID("_LD_HasSeed")
)

// TextureArrayName returns the well-known texture array parameter name for a module.
//
// Parameters:
//   - module: the module name, e.g. "Foam"
//
// Returns:
//   - string: "_LD_TexArray_" + module
func TextureArrayName(module string) string {
	return "_LD_TexArray_" + module
}

// SeedName returns the parameter name the driver binds the finer level's freshly written data under.
func SeedName(module string) string {
	return TextureArrayName(module) + "_Seed"
}
