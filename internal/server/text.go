package server

import "cropsense/internal/common"

// InputLabels are the form field captions.
type InputLabels struct {
	Crop     string
	Soil     string
	Location string
	Acres    string
}

// Text is the page copy for one language.
type Text struct {
	Title        string
	Header       string
	ResultLabel  string
	YieldLabel   string
	RiskLabel    string
	BackButton   string
	SubmitButton string
	Inputs       InputLabels
}

// Language is an entry of the language switcher.
type Language struct {
	Code string
	Name string
}

var languages = []Language{
	{Code: "en", Name: "English"},
	{Code: "te", Name: "తెలుగు"},
	{Code: "hi", Name: "हिन्दी"},
}

var translations = map[string]Text{
	"en": {
		Title:        "AI-Powered Crop Yield Prediction",
		Header:       "🌾 Smart Crop Yield & Risk Analysis 🌾",
		ResultLabel:  "Prediction Result",
		YieldLabel:   "Predicted Yield (in tons)",
		RiskLabel:    "Risk Level",
		BackButton:   "Go Back",
		SubmitButton: "Predict Crop",
		Inputs: InputLabels{
			Crop:     "Crop Name",
			Soil:     "Soil Type",
			Location: "Location",
			Acres:    "Acres of Land",
		},
	},
	"te": {
		Title:        "AI ఆధారిత పంట దిగుబడి అంచనా వ్యవస్థ",
		Header:       "🌾 స్మార్ట్ పంట దిగుబడి & ప్రమాద విశ్లేషణ 🌾",
		ResultLabel:  "ఫలితాలు",
		YieldLabel:   "అంచనా దిగుబడి (టన్నులలో)",
		RiskLabel:    "ప్రమాద స్థాయి",
		BackButton:   "తిరిగి వెళ్ళండి",
		SubmitButton: "పంట అంచనా వేయండి",
		Inputs: InputLabels{
			Crop:     "పంట పేరు",
			Soil:     "మట్టి రకం",
			Location: "ప్రాంతం",
			Acres:    "ఎకరాలు",
		},
	},
	"hi": {
		Title:        "एआई आधारित फसल उपज पूर्वानुमान प्रणाली",
		Header:       "🌾 स्मार्ट फसल उपज और जोखिम विश्लेषण 🌾",
		ResultLabel:  "परिणाम",
		YieldLabel:   "अनुमानित उत्पादन (टन में)",
		RiskLabel:    "जोखिम स्तर",
		BackButton:   "वापस जाएं",
		SubmitButton: "फसल का पूर्वानुमान लगाएं",
		Inputs: InputLabels{
			Crop:     "फसल का नाम",
			Soil:     "मिट्टी का प्रकार",
			Location: "स्थान",
			Acres:    "भूमि (एकड़)",
		},
	},
}

// textFor returns the copy for lang, falling back to English. The returned
// code is lang itself so links keep the caller's choice.
func textFor(lang string) (Text, string) {
	if lang == "" {
		lang = common.DefaultLanguage
	}
	if t, ok := translations[lang]; ok {
		return t, lang
	}
	return translations[common.DefaultLanguage], lang
}
