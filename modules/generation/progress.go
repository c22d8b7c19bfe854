package generation

// LoadingMessages is the rotating copy shown while a run is in flight.
var LoadingMessages = []string{
	"Analyzing product features...",
	"Generating creative concepts...",
	"Crafting high-resolution product photos...",
	"Building realistic lifestyle mockups...",
	"Designing eye-catching banners...",
	"Rendering promotional video (this can take a minute)...",
	"Optimizing assets for web and social media...",
	"Applying final touches...",
}

func messageFor(s State) string {
	switch s {
	case StateDescribing:
		return LoadingMessages[0]
	case StateSelectingCategories:
		return LoadingMessages[1]
	case StateGeneratingAll:
		return LoadingMessages[2]
	case StateAggregated:
		return LoadingMessages[7]
	}
	return ""
}

// MessageForSettled picks a loading message for the n-th settled task, so
// clients without a timer still see the copy rotate.
func MessageForSettled(n int) string {
	if n <= 0 {
		return LoadingMessages[2]
	}
	return LoadingMessages[2+(n-1)%5]
}
