package resolver

// Stage names the fallback level that produced a fragment.
type Stage string

const (
	StageAgent   Stage = "agent"
	StageApp     Stage = "app"
	StageBuiltin Stage = "builtin"
	StageGeneric Stage = "generic"
)

func (s Stage) String() string {
	return string(s)
}

// lookupStages pairs with the references returned by Chain.
var lookupStages = [...]Stage{StageAgent, StageApp}
