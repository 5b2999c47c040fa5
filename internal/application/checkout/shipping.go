package checkout

// Shipping is only offered domestically; the state list mirrors the
// storefront's address form.
var allowedCountries = set("India")

var allowedStates = set(
	"Andhra Pradesh", "Assam", "Bihar", "Chhattisgarh", "Delhi", "Goa",
	"Gujarat", "Haryana", "Himachal Pradesh", "Jharkhand", "Karnataka",
	"Kerala", "Madhya Pradesh", "Maharashtra", "Odisha", "Punjab",
	"Rajasthan", "Tamil Nadu", "Telangana", "Uttar Pradesh", "Uttarakhand",
	"West Bengal",
)

func set(values ...string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}
