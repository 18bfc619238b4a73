package usda

// Food is a food item from the FoodData Central search API
type Food struct {
	FdcID       int        `json:"fdcId"`
	Description string     `json:"description"`
	DataType    string     `json:"dataType"`
	BrandOwner  string     `json:"brandOwner,omitempty"`
	Nutrients   []Nutrient `json:"foodNutrients"`
}

// Nutrient is a single nutrient value of a food, per 100 g or 100 ml
type Nutrient struct {
	NutrientID   int     `json:"nutrientId"`
	NutrientName string  `json:"nutrientName"`
	UnitName     string  `json:"unitName"`
	Value        float64 `json:"value"`
}

// SearchResponse is the response from the foods search endpoint
type SearchResponse struct {
	Foods       []Food `json:"foods"`
	TotalHits   int    `json:"totalHits"`
	CurrentPage int    `json:"currentPage"`
	TotalPages  int    `json:"totalPages"`
}
