package policy

// Defaults returns the built-in classification table.
func Defaults() []Policy {
	return []Policy{
		{Domain: "cookpad.com", Kind: Prefer, Boost: 1.5, Reason: "rich JSON-LD recipe schema"},
		{Domain: "kurashiru.com", Kind: Prefer, Boost: 1.3, Reason: "structured recipe data"},
		{Domain: "delish-kitchen.tv", Kind: Prefer, Boost: 1.3, Reason: "video and structured recipe data"},
		{Domain: "ajinomoto.co.jp", Kind: Prefer, Boost: 1.4, Reason: "detailed nutrition"},
		{Domain: "recipe.rakuten.co.jp", Kind: Prefer, Boost: 1.2, Reason: "recipe aggregator with schema markup"},
		{Domain: "orangepage.net", Kind: Prefer, Boost: 1.3, Reason: "magazine recipes with structured data"},
		{Domain: "kyounoryouri.jp", Kind: Prefer, Boost: 1.4, Reason: "high editorial quality"},
		{Domain: "lettuceclub.net", Kind: Prefer, Boost: 1.2, Reason: "magazine recipes with good markup"},
		{Domain: "bob-an.com", Kind: Prefer, Boost: 1.2, Reason: "recipe magazine with structured data"},
		{Domain: "chefgohan.com", Kind: Prefer, Boost: 1.1, Reason: "chef recipes with good structure"},

		{Domain: "amazon.co.jp", Kind: Exclude, Boost: 0.1, Reason: "e-commerce product pages"},
		{Domain: "rakuten.co.jp", Kind: Exclude, Boost: 0.1, Reason: "e-commerce marketplace"},
		{Domain: "yahoo.co.jp", Kind: Exclude, Boost: 0.1, Reason: "e-commerce and mixed content"},
		{Domain: "kakaku.com", Kind: Exclude, Boost: 0.1, Reason: "price comparison"},
		{Domain: "tabelog.com", Kind: Exclude, Boost: 0.2, Reason: "restaurant reviews"},
		{Domain: "gurunavi.com", Kind: Exclude, Boost: 0.1, Reason: "restaurant directory"},
		{Domain: "hotpepper.jp", Kind: Exclude, Boost: 0.1, Reason: "restaurant booking"},
		{Domain: "ubereats.com", Kind: Exclude, Boost: 0.1, Reason: "food delivery"},
		{Domain: "demae-can.com", Kind: Exclude, Boost: 0.1, Reason: "food delivery"},
		{Domain: "menulist.menu", Kind: Exclude, Boost: 0.1, Reason: "restaurant menu aggregator"},
		{Domain: "retty.me", Kind: Exclude, Boost: 0.2, Reason: "restaurant discovery"},
		{Domain: "yelp.co.jp", Kind: Exclude, Boost: 0.1, Reason: "restaurant reviews"},
		{Domain: "r.gnavi.co.jp", Kind: Exclude, Boost: 0.1, Reason: "restaurant navigation"},
		{Domain: "s.tabelog.com", Kind: Exclude, Boost: 0.1, Reason: "restaurant subdomain"},

		{Domain: "allrecipes.com", Kind: Whitelist, Boost: 1.1, Reason: "international recipe fallback"},
		{Domain: "food.com", Kind: Whitelist, Boost: 1.1, Reason: "community recipe fallback"},
		{Domain: "taste.com.au", Kind: Whitelist, Boost: 1.0, Reason: "international recipe fallback"},
		{Domain: "bbc.co.uk", Kind: Whitelist, Boost: 1.0, Reason: "BBC Good Food fallback"},
		{Domain: "allabout.co.jp", Kind: Whitelist, Boost: 1.0, Reason: "lifestyle site with recipes"},
	}
}

// DefaultTable returns a snapshot of Defaults.
func DefaultTable() *Table { return NewTable(Defaults()) }
