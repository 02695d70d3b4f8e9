package seed

// Config is the top-level structure of a seed file:
//
//	repositories:
//	  - owner: acme
//	    repo: handbook
//	links:
//	  - url: https://example.org/papers/intro.pdf
//	    name: Intro
type Config struct {
	Repositories []RepoEntry `yaml:"repositories"`
	Links        []LinkEntry `yaml:"links"`
}

// RepoEntry declares a repoRelease source.
type RepoEntry struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
}

// LinkEntry declares a directLink source. Name is derived from the URL when empty.
type LinkEntry struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name,omitempty"`
}
