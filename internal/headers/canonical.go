package headers

// canonicalNames maps cleaned header text to a canonical snake_case field.
// Lookups are exact; Latin entries are case-sensitive. The table is only ever
// read at runtime: new headers are added here, not through an API.
var canonicalNames = map[string]string{
	"المنطقة":                 "region",
	"المدينة":                 "city",
	"المدينة / الحي":          "city_district",
	"الحي":                    "district",
	"الرقم المرجعي للصفقة":    "transaction_ref",
	"الرقم المرجعي":           "reference_number",
	"تاريخ الصفقة ميلادي":     "date_gregorian",
	"تاريخ الصفقة هجري":       "date_hijri",
	"التاريخ ميلادي":          "date_gregorian",
	"التاريخ هجري":            "date_hijri",
	"تاريخ القرار ميلادي":     "decision_date_gregorian",
	"تاريخ القرارهجري":        "decision_date_hijri",
	"تصنيف العقار":            "property_classification",
	"نوع العقار":              "property_type",
	"عدد العقارات":            "property_count",
	"السعر":                   "price",
	"المساحة":                 "area",
	"المساحة M2":              "area_m2",
	"نوع القطاع":              "sector_type",
	"نوع الخدمة":              "service_type",
	"نوع العملية":             "operation_type",
	"عدد العمليات":            "operation_count",
	"نوع السند الرئيسي":       "main_document_type",
	"السنة":                   "year",
	"الربع":                   "quarter",
	"ربع السنة":               "quarter",
	"عدد الصكوك":              "deed_count",
	"قيمة الصفقات":            "transaction_value",
	"متوسط سعر المتر":         "avg_price_per_m2",
	"الحد الأعلى لسعر المتر":  "max_price_per_m2",
	"الحد الأدنى لسعر المتر":  "min_price_per_m2",
	"مجموع الصفقات":           "total_transactions",
	"المتوسط":                 "average",
	"الشهر":                   "month",
	"عدد الملاك النساء":       "female_owner_count",
	"نسبة تملك النساء":        "female_ownership_rate",

	// consolidated quarter report (English headers)
	"yearnumber":            "year",
	"quarternumber":         "quarter_number",
	"quarternamear":         "quarter_name_ar",
	"quarterid":             "quarter_id",
	"region_ar":             "region",
	"city_ar":               "city",
	"district_ar":           "district",
	"typecategoryar":        "property_classification",
	"deed_counts":           "deed_count",
	"RealEstatePrice_SUM":   "total_price",
	"Meter_Price_W_Avg_IQR": "weighted_avg_price_per_m2",

	// gender statistics
	"Gender":       "gender",
	"RENs":         "registered_count",
	"Created Date": "created_date",
}

// Canonical returns the canonical field for a cleaned header. ok is false for
// unmapped headers, which are expected and not an error.
func Canonical(cleaned string) (name string, ok bool) {
	name, ok = canonicalNames[cleaned]
	return name, ok
}

// Headers that designate the region column and the Gregorian date column.
var (
	regionHeaders = map[string]struct{}{
		"المنطقة":   {},
		"region_ar": {},
	}
	gregorianDateHeaders = map[string]struct{}{
		"تاريخ الصفقة ميلادي": {},
		"التاريخ ميلادي":      {},
		"تاريخ القرار ميلادي": {},
	}
)

// IsRegion reports whether a cleaned header designates the region column.
func IsRegion(cleaned string) bool {
	_, ok := regionHeaders[cleaned]
	return ok
}

// IsGregorianDate reports whether a cleaned header designates the Gregorian
// date column.
func IsGregorianDate(cleaned string) bool {
	_, ok := gregorianDateHeaders[cleaned]
	return ok
}

// RegionColumn returns the index of the first region column, or -1.
func RegionColumn(cleaned []string) int {
	return firstIndex(cleaned, IsRegion)
}

// DateColumn returns the index of the first Gregorian date column, or -1.
func DateColumn(cleaned []string) int {
	return firstIndex(cleaned, IsGregorianDate)
}

func firstIndex(hs []string, match func(string) bool) int {
	for i, h := range hs {
		if match(Clean(h)) {
			return i
		}
	}
	return -1
}
