package classifier

// Config is the immutable configuration a Classifier is built from. The
// variant and brand tables are free-text synonym lists keyed by canonical
// category name; they extend without code changes.
type Config struct {
	// DefaultCategoryID is returned when no heuristic matches
	DefaultCategoryID int64
	// Categories maps category id to canonical name, as loaded from the
	// category dimension
	Categories map[int64]string
	// Variants maps canonical category name to generic synonym terms
	Variants map[string][]string
	// Brands maps canonical category name to brand-name terms
	Brands map[string][]string
}

// DefaultVariants is the curated synonym table shipped with the builder
var DefaultVariants = map[string][]string{
	"beverages": {
		"drink", "juice", "soda", "coffee", "tea", "beverage", "smoothie",
		"lemonade", "water", "cola", "energy drink",
	},
	"dairy and egg products": {
		"milk", "cheese", "yogurt", "dairy", "ice cream", "frozen yogurt",
		"cream", "butter", "egg", "custard", "pudding", "whey",
	},
	"snacks": {
		"chips", "crackers", "popcorn", "pretzels", "snack", "granola bar",
		"energy bar", "trail mix", "peanuts", "seeds", "nuts", "crisps",
		"tortilla chips", "potato chips", "corn chips", "mixed nuts",
	},
	"baked products": {
		"bread", "cake", "cookie", "pastry", "baked", "muffin", "roll", "bun",
		"bagel", "croissant", "donut", "pie", "brownie", "biscuit", "scone",
	},
	"cereal grains and pasta": {
		"cereal", "grain", "pasta", "rice", "wheat", "oat", "quinoa", "barley",
		"noodle", "macaroni", "spaghetti", "couscous", "ramen",
	},
	"fast foods": {
		"restaurant", "takeout", "fast-food", "drive-thru", "burger", "pizza",
		"sandwich", "fries", "taco", "burrito",
	},
	"vegetables and vegetable products": {
		"vegetable", "veggies", "veg", "pickle", "olive", "pepper", "relish",
		"salad", "lettuce", "tomato", "carrot", "potato", "onion", "garlic",
		"broccoli", "spinach", "cucumber", "celery", "mushroom",
	},
	"fruits and fruit juices": {
		"fruit", "fruits", "apple", "orange", "banana", "berry", "grape",
		"citrus", "peach", "pear", "plum", "mango", "pineapple", "melon",
	},
	"spices and herbs": {
		"spice", "herb", "seasoning", "salt", "marinade", "tenderizer",
		"pepper", "garlic", "oregano", "basil", "thyme", "cinnamon",
		"nutmeg", "paprika", "cumin", "curry",
	},
	"soups, sauces, and gravies": {
		"soup", "sauce", "gravy", "dip", "salsa", "ketchup", "mustard",
		"bbq", "mayonnaise", "dressing", "broth", "stock", "chowder",
		"stew", "bouillon",
	},
	"sweets": {
		"candy", "chocolate", "sweet", "dessert", "sugar", "syrup",
		"honey", "jam", "jelly", "marshmallow", "caramel", "fudge",
		"taffy", "gummy", "licorice", "lollipop", "toffee",
	},
}

// DefaultBrands maps common brand names to their categories
var DefaultBrands = map[string][]string{
	"snacks": {
		"doritos", "lays", "pringles", "cheetos", "ritz", "nabisco", "sunchips",
		"tostitos", "fritos", "planters", "chex mix", "combos",
	},
	"beverages": {
		"coca-cola", "coke", "pepsi", "sprite", "fanta", "gatorade", "snapple",
		"mountain dew", "dr pepper", "7up", "schweppes", "red bull", "monster",
	},
	"sweets": {
		"hershey", "mars", "nestle", "cadbury", "twix", "snickers", "milky way",
		"kitkat", "reeses", "butterfinger", "skittles", "starburst",
	},
	"dairy and egg products": {
		"dannon", "yoplait", "breyers", "häagen", "haagen", "ben jerry",
		"chobani", "kraft", "philadelphia", "sargento", "velveeta",
	},
}
