package domain

// regionCountries maps region slugs to member country codes. Regions group
// countries so advertisers can target "western-europe" instead of listing
// every country. The table changes rarely; it is held in memory and can be
// replaced wholesale at snapshot refresh.
var regionCountries = map[string][]string{
	"us-ca":          {"US", "CA"},
	"western-europe": {"GB", "IE", "FR", "DE", "NL", "BE", "LU", "AT", "CH", "ES", "PT", "IT", "DK", "SE", "NO", "FI", "IS"},
	"eastern-europe": {"PL", "CZ", "SK", "HU", "RO", "BG", "HR", "SI", "EE", "LV", "LT", "GR", "UA", "RS"},
	"aus-nz":         {"AU", "NZ"},
	"wider-apac":     {"JP", "KR", "TW", "HK", "SG", "MY", "TH", "VN", "PH", "ID", "CN"},
	"latin-america":  {"MX", "BR", "AR", "CL", "CO", "PE", "UY", "EC", "CR", "PA"},
	"africa":         {"ZA", "NG", "KE", "EG", "MA", "GH", "TN"},
	"south-asia":     {"IN", "PK", "BD", "LK", "NP"},
}

// ReplaceRegionTable swaps the region table, typically after loading region
// rows from the store at startup. Passing nil keeps the built-in table.
func ReplaceRegionTable(table map[string][]string) {
	if table != nil {
		regionCountries = table
	}
}

// RegionContainsCountry reports whether the country code belongs to the
// region. Unknown regions contain nothing.
func RegionContainsCountry(region, country string) bool {
	if country == "" {
		return false
	}
	for _, c := range regionCountries[region] {
		if c == country {
			return true
		}
	}
	return false
}

// topicKeywords maps topic slugs to their keyword groups. Topics let a
// flight target a theme ("devops") without enumerating keywords.
var topicKeywords = map[string][]string{
	"devops":         {"devops", "docker", "kubernetes", "terraform", "ansible", "ci-cd", "monitoring", "sre"},
	"backend-web":    {"python", "django", "flask", "golang", "rust", "api", "postgres", "redis"},
	"frontend-web":   {"javascript", "typescript", "react", "vue", "css", "webpack"},
	"data-science":   {"machine-learning", "data-science", "pandas", "numpy", "jupyter", "tensorflow", "pytorch"},
	"security":       {"security", "appsec", "cryptography", "pentesting", "vulnerability"},
	"blockchain":     {"blockchain", "ethereum", "solidity", "web3"},
	"game-dev":       {"gamedev", "unity", "unreal", "godot"},
	"embedded":       {"embedded", "arduino", "raspberry-pi", "iot", "firmware"},
	"techwriting":    {"documentation", "sphinx", "mkdocs", "technical-writing"},
	"open-source":    {"open-source", "foss", "licensing", "maintainer"},
}

// ReplaceTopicTable swaps the topic table. Passing nil keeps the built-in
// table.
func ReplaceTopicTable(table map[string][]string) {
	if table != nil {
		topicKeywords = table
	}
}

// TopicKeywords returns the keywords grouped under a topic slug, or nil for
// an unknown topic.
func TopicKeywords(topic string) []string {
	return topicKeywords[topic]
}
