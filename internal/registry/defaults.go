package registry

// Default returns the registry of models this deployment supports. Adding a
// model means adding a ModelSpec here and pointing MODEL_ENDPOINTS at its
// scoring service.
func Default() (*Registry, error) {
	return New([]ModelSpec{
		{
			ID: "cardiovascular",
			Description: "Cardiovascular disease risk: estimates the probability of " +
				"heart disease or a cardiac event from blood pressure, cholesterol, " +
				"glucose, and lifestyle factors.",
			Target:     "cardio-svc",
			DefaultURL: "http://localhost:9001/predict",
			Parameters: []ParameterSpec{
				{Name: "age", Type: TypeNumeric, Required: true, Min: 1, Max: 120},
				{Name: "sex", Type: TypeEnum, Required: true, Values: []string{"male", "female"}},
				{Name: "systolic_bp", Type: TypeNumeric, Required: true, Min: 60, Max: 260},
				{Name: "diastolic_bp", Type: TypeNumeric, Required: true, Min: 30, Max: 160},
				{Name: "cholesterol_total", Type: TypeNumeric, Required: true, Min: 80, Max: 500},
				{Name: "blood_glucose_level", Type: TypeNumeric, Required: true, Min: 40, Max: 600},
				{Name: "smoker", Type: TypeBoolean, Required: true},
				{Name: "alcohol_use", Type: TypeBoolean},
				{Name: "physically_active", Type: TypeBoolean},
			},
		},
		{
			ID: "diabetes",
			Description: "Type 2 diabetes risk: screens for diabetes from BMI, " +
				"HbA1c, blood glucose, and comorbidities.",
			Target:     "diabetes-svc",
			DefaultURL: "http://localhost:9002/predict",
			Parameters: []ParameterSpec{
				{Name: "age", Type: TypeNumeric, Required: true, Min: 1, Max: 120},
				{Name: "sex", Type: TypeEnum, Required: true, Values: []string{"male", "female"}},
				{Name: "bmi", Type: TypeNumeric, Required: true, Min: 10, Max: 70},
				{Name: "HbA1c_level", Type: TypeNumeric, Required: true, Min: 3, Max: 20},
				{Name: "blood_glucose_level", Type: TypeNumeric, Required: true, Min: 40, Max: 600},
				{Name: "hypertension", Type: TypeBoolean},
				{Name: "heart_disease", Type: TypeBoolean},
				{Name: "smoking_history", Type: TypeEnum, Values: []string{"never", "former", "current", "unknown"}},
			},
		},
		{
			ID: "general_wellness",
			Description: "General wellness screen: broad lifestyle and preventive " +
				"health overview with no mandatory inputs.",
			Target:     "wellness-svc",
			DefaultURL: "http://localhost:9003/predict",
			Parameters: []ParameterSpec{
				{Name: "age", Type: TypeNumeric, Min: 1, Max: 120},
				{Name: "sex", Type: TypeEnum, Values: []string{"male", "female"}},
			},
		},
	})
}
