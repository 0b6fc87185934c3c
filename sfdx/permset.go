package sfdx

type PermSetResult struct {
	Successes []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"successes"`
	Failures []struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"failures"`
}

type CommunityResult struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Status  string `json:"status"`
	URL     string `json:"url"`
	Message string `json:"message,omitempty"`
}
