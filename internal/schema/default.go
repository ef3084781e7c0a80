package schema

// Default lookup tables for the CDC heart-survey extract. Codes are
// ordinal where the answer scale has a natural order and enumeration
// order otherwise; they only need to be stable, the downstream model
// never interprets magnitudes of categorical codes.

var yesNo = map[string]float64{"No": 0, "Yes": 1}

var sexLookup = map[string]float64{"Female": 0, "Male": 1}

var generalHealthLookup = map[string]float64{
	"Poor":      0,
	"Fair":      1,
	"Good":      2,
	"Very good": 3,
	"Excellent": 4,
}

var lastCheckupLookup = map[string]float64{
	"Within past year (anytime less than 12 months ago)":       0,
	"Within past 2 years (1 year but less than 2 years ago)":   1,
	"Within past 5 years (2 years but less than 5 years ago)":  2,
	"5 or more years ago":                                      3,
}

var removedTeethLookup = map[string]float64{
	"None of them":           0,
	"1 to 5":                 1,
	"6 or more, but not all": 2,
	"All":                    3,
}

var diabetesLookup = map[string]float64{
	"No": 0,
	"No, pre-diabetes or borderline diabetes": 1,
	"Yes, but only during pregnancy (female)": 2,
	"Yes":                                     3,
}

var smokerLookup = map[string]float64{
	"Never smoked":                          0,
	"Former smoker":                         1,
	"Current smoker - now smokes some days": 2,
	"Current smoker - now smokes every day": 3,
}

var ecigaretteLookup = map[string]float64{
	"Never used e-cigarettes in my entire life": 0,
	"Not at all (right now)":                    1,
	"Use them some days":                        2,
	"Use them every day":                        3,
}

var raceEthnicityLookup = map[string]float64{
	"White only, Non-Hispanic":  0,
	"Black only, Non-Hispanic":  1,
	"Other race only, Non-Hispanic": 2,
	"Multiracial, Non-Hispanic": 3,
	"Hispanic":                  4,
}

var ageCategoryLookup = map[string]float64{
	"Age 18 to 24":    0,
	"Age 25 to 29":    1,
	"Age 30 to 34":    2,
	"Age 35 to 39":    3,
	"Age 40 to 44":    4,
	"Age 45 to 49":    5,
	"Age 50 to 54":    6,
	"Age 55 to 59":    7,
	"Age 60 to 64":    8,
	"Age 65 to 69":    9,
	"Age 70 to 74":    10,
	"Age 75 to 79":    11,
	"Age 80 or older": 12,
}

var tetanusLookup = map[string]float64{
	"No, did not receive any tetanus shot in the past 10 years": 0,
	"Yes, received tetanus shot but not sure what type":         1,
	"Yes, received Tdap":                                        2,
	"Yes, received tetanus shot, but not Tdap":                  3,
}

var covidLookup = map[string]float64{
	"No":  0,
	"Yes": 1,
	"Tested positive using home test without a health professional": 2,
}

// Default returns the schema for the heart-survey extract: 32
// categorical risk factors, 3 numeric ones, a BMI derived from raw
// weight/height, and HadHeartAttack as the binary label. State and the
// raw body measurements are dropped after derivation.
func Default() *Schema {
	cat := func(name string, lookup map[string]float64) Field {
		return Field{Name: name, Kind: Categorical, Lookup: lookup}
	}
	num := func(name string) Field {
		return Field{Name: name, Kind: Numeric}
	}

	return &Schema{
		Fields: []Field{
			cat("Sex", sexLookup),
			cat("GeneralHealth", generalHealthLookup),
			cat("LastCheckupTime", lastCheckupLookup),
			cat("PhysicalActivities", yesNo),
			cat("RemovedTeeth", removedTeethLookup),
			cat("HadAngina", yesNo),
			cat("HadStroke", yesNo),
			cat("HadAsthma", yesNo),
			cat("HadSkinCancer", yesNo),
			cat("HadCOPD", yesNo),
			cat("HadDepressiveDisorder", yesNo),
			cat("HadKidneyDisease", yesNo),
			cat("HadArthritis", yesNo),
			cat("HadDiabetes", diabetesLookup),
			cat("DeafOrHardOfHearing", yesNo),
			cat("BlindOrVisionDifficulty", yesNo),
			cat("DifficultyConcentrating", yesNo),
			cat("DifficultyWalking", yesNo),
			cat("DifficultyDressingBathing", yesNo),
			cat("DifficultyErrands", yesNo),
			cat("SmokerStatus", smokerLookup),
			cat("ECigaretteUsage", ecigaretteLookup),
			cat("ChestScan", yesNo),
			cat("RaceEthnicityCategory", raceEthnicityLookup),
			cat("AgeCategory", ageCategoryLookup),
			cat("AlcoholDrinkers", yesNo),
			cat("HIVTesting", yesNo),
			cat("FluVaxLast12", yesNo),
			cat("PneumoVaxEver", yesNo),
			cat("TetanusLast10Tdap", tetanusLookup),
			cat("HighRiskLastYear", yesNo),
			cat("CovidPos", covidLookup),
			num("PhysicalHealthDays"),
			num("MentalHealthDays"),
			num("SleepHours"),
			num("BMI_Calculated"),
		},
		Label: "HadHeartAttack",
		Derive: &BMIDerivation{
			WeightField: "WeightInKilograms",
			HeightField: "HeightInMeters",
			Target:      "BMI_Calculated",
		},
		Drop: []string{"State", "BMI"},
	}
}
