package types

// GeneratorModule identifies a marketing-copy generator.
type GeneratorModule string

const (
	GeneratorModuleAvatar GeneratorModule = "avatar"
	GeneratorModulePitch  GeneratorModule = "pitch"
	GeneratorModulePlan   GeneratorModule = "plan"
	GeneratorModuleEmail  GeneratorModule = "email"
	GeneratorModuleSocial GeneratorModule = "social"
)

func (m GeneratorModule) Valid() bool {
	switch m {
	case GeneratorModuleAvatar, GeneratorModulePitch, GeneratorModulePlan, GeneratorModuleEmail, GeneratorModuleSocial:
		return true
	}
	return false
}
