package advisor

// SoilTypes are the soil choices offered by the form, before "Other".
var SoilTypes = []string{
	"Sandy", "Loamy", "Clay", "Silty", "Peaty", "Chalky",
	"Sandy Loam", "Silty Loam", "Clay Loam", "Loam",
}

// CropTypes are the crop choices offered by the form, before "Other".
var CropTypes = []string{
	"Rice", "Wheat", "Maize", "Barley", "Millet", "Sorghum",
	"Soybean", "Groundnut", "Cotton", "Sugarcane", "Tea", "Coffee",
	"Potato", "Tomato", "Onion", "Cabbage", "Cauliflower", "Banana",
	"Mango", "Grapes", "Coconut", "Pulses",
}
