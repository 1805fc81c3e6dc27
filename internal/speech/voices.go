package speech

// DefaultVoice is used when a request names no voice.
const DefaultVoice = "Wise_Woman"

// Voice describes one selectable speaker.
type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Gender   string `json:"gender"`
}

var catalog = []Voice{
	{ID: "Wise_Woman", Name: "Wise Woman", Language: "en-us", Gender: "Female"},
	{ID: "Friendly_Person", Name: "Friendly Person", Language: "en-us", Gender: "Neutral"},
	{ID: "Inspirational_girl", Name: "Inspirational Girl", Language: "en-us", Gender: "Female"},
	{ID: "Deep_Voice_Man", Name: "Deep Voice Man", Language: "en-us", Gender: "Male"},
	{ID: "Calm_Woman", Name: "Calm Woman", Language: "en-us", Gender: "Female"},
	{ID: "Casual_Guy", Name: "Casual Guy", Language: "en-us", Gender: "Male"},
	{ID: "Lively_Girl", Name: "Lively Girl", Language: "en-us", Gender: "Female"},
	{ID: "Patient_Man", Name: "Patient Man", Language: "en-us", Gender: "Male"},
	{ID: "Young_Knight", Name: "Young Knight", Language: "en-us", Gender: "Male"},
	{ID: "Determined_Man", Name: "Determined Man", Language: "en-us", Gender: "Male"},
	{ID: "Lovely_Girl", Name: "Lovely Girl", Language: "en-us", Gender: "Female"},
	{ID: "Decent_Boy", Name: "Decent Boy", Language: "en-us", Gender: "Male"},
	{ID: "Imposing_Manner", Name: "Imposing Manner", Language: "en-us", Gender: "Neutral"},
	{ID: "Elegant_Man", Name: "Elegant Man", Language: "en-us", Gender: "Male"},
	{ID: "Sweet_Girl_2", Name: "Sweet Girl", Language: "en-us", Gender: "Female"},
	{ID: "Exuberant_Girl", Name: "Exuberant Girl", Language: "en-us", Gender: "Female"},
	{ID: "CN_Female_1", Name: "温柔女声", Language: "zh-cn", Gender: "Female"},
	{ID: "CN_Male_1", Name: "沉稳男声", Language: "zh-cn", Gender: "Male"},
	{ID: "CN_Female_2", Name: "活泼女声", Language: "zh-cn", Gender: "Female"},
	{ID: "CN_Male_2", Name: "磁性男声", Language: "zh-cn", Gender: "Male"},
	{ID: "CN_Female_3", Name: "知性女声", Language: "zh-cn", Gender: "Female"},
	{ID: "CN_Male_3", Name: "亲和男声", Language: "zh-cn", Gender: "Male"},
}

// Voices returns the catalog in its fixed order. The slice is a copy.
func Voices() []Voice {
	out := make([]Voice, len(catalog))
	copy(out, catalog)

	return out
}

// LookupVoice reports whether id names a catalog voice.
func LookupVoice(id string) (Voice, bool) {
	for _, voice := range catalog {
		if voice.ID == id {
			return voice, true
		}
	}

	return Voice{}, false
}

// ResolveVoice substitutes DefaultVoice for an empty id. Other ids pass through
// unchanged; the provider decides whether it knows them.
func ResolveVoice(id string) string {
	if id == "" {
		return DefaultVoice
	}

	return id
}
