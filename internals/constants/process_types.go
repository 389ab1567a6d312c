package constants

// Process types used by assignments
const (
	// process id is the client id
	ProcessOnboardingStage = "onboarding_stage"
)
