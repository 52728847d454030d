package reference

import (
	"github.com/shopspring/decimal"

	"github.com/opdemr/opdemr/internal/domain/category"
)

type phrase struct {
	en string
	hi string
}

// phrasebook holds the standard descriptions for common dose values.
var phrasebook = map[string]phrase{
	"1-0-0":   {"Once daily in the morning", "सुबह में एक बार"},
	"0-1-0":   {"Once daily in the afternoon", "दोपहर में एक बार"},
	"0-0-1":   {"Once daily at night", "रात में एक बार"},
	"1-1-0":   {"Morning and afternoon", "सुबह और दोपहर"},
	"0-1-1":   {"Afternoon and night", "दोपहर और रात"},
	"1-0-1":   {"Morning and night", "सुबह और रात"},
	"1-1-1":   {"Three times daily", "दिन में तीन बार"},
	"1-1-1-1": {"Four times daily", "दिन में चार बार"},
	"OD":      {"Once a day", "दिन में एक बार"},
	"BD":      {"Twice a day", "दिन में दो बार"},
	"TDS":     {"Three times a day", "दिन में तीन बार"},
	"QID":     {"Four times a day", "दिन में चार बार"},
	"HS":      {"At bedtime", "सोते समय"},
	"SOS":     {"Only when needed", "ज़रूरत पड़ने पर"},
	"STAT":    {"Immediately, once", "तुरंत, एक बार"},
}

// doseOrder fixes the insertion order of the seeded dose patterns.
var doseOrder = []string{
	"1-0-0", "0-1-0", "0-0-1", "1-1-0", "0-1-1", "1-0-1", "1-1-1", "1-1-1-1",
	"OD", "BD", "TDS", "QID", "HS", "SOS", "STAT",
}

type seedSupplier struct {
	name, contact, phone, gst string
}

var seedSuppliers = []seedSupplier{
	{"Medline Distributors", "R. Sharma", "9810000001", "07AABCM1234F1Z5"},
	{"Sunrise Pharma Agencies", "P. Iyer", "9810000002", "29AACCS5678K1Z2"},
	{"Apollo Wholesale", "S. Khan", "9810000003", "36AADCA9012L1Z8"},
}

type seedItem struct {
	sku, name, generic, cat, unit string
	mrp                           string
	reorder                       int
}

var seedItems = []seedItem{
	{"SKU-PCM-500", "Paracetamol 500mg", "Paracetamol", "Tablet", "strip", "20.50", 50},
	{"SKU-AMX-500", "Amoxicillin 500mg", "Amoxicillin", "Capsule", "strip", "85.00", 30},
	{"SKU-AZI-500", "Azithromycin 500mg", "Azithromycin", "Tablet", "strip", "72.00", 20},
	{"SKU-PAN-40", "Pantoprazole 40mg", "Pantoprazole", "Tablet", "strip", "110.00", 30},
	{"SKU-CET-10", "Cetirizine 10mg", "Cetirizine", "Tablet", "strip", "18.00", 40},
	{"SKU-MET-500", "Metformin 500mg", "Metformin", "Tablet", "strip", "32.00", 40},
	{"SKU-ORS-21", "ORS Sachet", "Oral rehydration salts", "Powder", "sachet", "21.00", 100},
	{"SKU-CGH-100", "Cough Syrup 100ml", "Dextromethorphan", "Syrup", "bottle", "95.00", 15},
}

type seedTest struct {
	code, name, cat, sub, sample, unit, normal string
	price                                      string
	service                                    category.Category
}

var seedTests = []seedTest{
	{"CBC", "Complete Blood Count", "Haematology", "", "Blood", "", "", "350", category.Investigation},
	{"ESR", "Erythrocyte Sedimentation Rate", "Haematology", "", "Blood", "mm/hr", "0-20", "150", category.Investigation},
	{"FBS", "Fasting Blood Sugar", "Biochemistry", "Diabetes", "Blood", "mg/dL", "70-100", "120", category.Investigation},
	{"PPBS", "Post Prandial Blood Sugar", "Biochemistry", "Diabetes", "Blood", "mg/dL", "<140", "120", category.Investigation},
	{"HBA1C", "Glycated Haemoglobin", "Biochemistry", "Diabetes", "Blood", "%", "4.0-5.6", "550", category.Investigation},
	{"LIPID", "Lipid Profile", "Biochemistry", "Cardiac", "Blood", "", "", "700", category.Investigation},
	{"LFT", "Liver Function Test", "Biochemistry", "Hepatic", "Blood", "", "", "650", category.Investigation},
	{"KFT", "Kidney Function Test", "Biochemistry", "Renal", "Blood", "", "", "650", category.Investigation},
	{"TSH", "Thyroid Stimulating Hormone", "Endocrinology", "", "Blood", "mIU/L", "0.4-4.0", "400", category.Investigation},
	{"URINE-RM", "Urine Routine and Microscopy", "Clinical Pathology", "", "Urine", "", "", "180", category.Investigation},
	{"XRAY-CHEST", "X-Ray Chest PA View", "Radiology", "X-Ray", "", "", "", "450", category.Investigation},
	{"USG-ABD", "Ultrasound Whole Abdomen", "Radiology", "Ultrasound", "", "", "", "1200", category.Investigation},
	{"ECG", "Electrocardiogram", "Cardiology", "", "", "", "", "300", category.Investigation},
	{"PATH-CONSULT", "Pathologist Consultation", "Consultation", "", "", "", "", "500", category.Consultation},
}

type seedTemplate struct {
	name, cat, testCode, body string
}

var seedTemplates = []seedTemplate{
	{"Complete Blood Count", "Haematology", "CBC",
		"Haemoglobin: {{hb}} g/dL\nTotal WBC: {{wbc}} /cumm\nPlatelets: {{plt}} lakh/cumm"},
	{"Lipid Profile", "Biochemistry", "LIPID",
		"Total Cholesterol: {{tc}} mg/dL\nHDL: {{hdl}} mg/dL\nLDL: {{ldl}} mg/dL\nTriglycerides: {{tg}} mg/dL"},
	{"Liver Function Test", "Biochemistry", "LFT",
		"Bilirubin Total: {{bil_t}} mg/dL\nSGOT: {{sgot}} U/L\nSGPT: {{sgpt}} U/L"},
	{"Chest X-Ray Report", "Radiology", "XRAY-CHEST",
		"Findings: {{findings}}\nImpression: {{impression}}"},
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
