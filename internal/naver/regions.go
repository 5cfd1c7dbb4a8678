package naver

import "strings"

// Coord is a WGS84 map center used to seed the article search.
type Coord struct {
	Lat float64
	Lng float64
}

// seoulGuCodes maps Seoul 구 names to their 시군구 codes (the first five
// digits of the 법정동 code).
var seoulGuCodes = map[string]string{
	"종로구":  "11110",
	"중구":   "11140",
	"용산구":  "11170",
	"성동구":  "11200",
	"광진구":  "11215",
	"동대문구": "11230",
	"중랑구":  "11260",
	"성북구":  "11290",
	"강북구":  "11305",
	"도봉구":  "11320",
	"노원구":  "11350",
	"은평구":  "11380",
	"서대문구": "11410",
	"마포구":  "11440",
	"양천구":  "11470",
	"강서구":  "11500",
	"구로구":  "11530",
	"금천구":  "11545",
	"영등포구": "11560",
	"동작구":  "11590",
	"관악구":  "11620",
	"서초구":  "11650",
	"강남구":  "11680",
	"송파구":  "11710",
	"강동구":  "11740",
}

// gyeonggiCodes maps Gyeonggi city/district names, including common short
// aliases, to their 시군구 codes.
var gyeonggiCodes = map[string]string{
	"성남시 수정구":  "41131",
	"성남시 중원구":  "41133",
	"성남시 분당구":  "41135",
	"성남 수정구":   "41131",
	"성남 중원구":   "41133",
	"성남 분당구":   "41135",
	"분당구":      "41135",
	"분당":       "41135",
	"수원시 장안구":  "41111",
	"수원시 권선구":  "41113",
	"수원시 팔달구":  "41115",
	"수원시 영통구":  "41117",
	"수원 장안구":   "41111",
	"수원 권선구":   "41113",
	"수원 팔달구":   "41115",
	"수원 영통구":   "41117",
	"영통구":      "41117",
	"용인시 처인구":  "41461",
	"용인시 기흥구":  "41463",
	"용인시 수지구":  "41465",
	"용인 처인구":   "41461",
	"용인 기흥구":   "41463",
	"용인 수지구":   "41465",
	"수지구":      "41465",
	"기흥구":      "41463",
	"고양시 덕양구":  "41281",
	"고양시 일산동구": "41285",
	"고양시 일산서구": "41287",
	"고양 덕양구":   "41281",
	"고양 일산동구":  "41285",
	"고양 일산서구":  "41287",
	"일산동구":     "41285",
	"일산서구":     "41287",
	"일산":       "41285",
	"안양시 만안구":  "41171",
	"안양시 동안구":  "41173",
	"안양 만안구":   "41171",
	"안양 동안구":   "41173",
	"동안구":      "41173",
	"만안구":      "41171",
	"평촌":       "41173",
	"부천시":      "41190",
	"부천":       "41190",
	"광명시":      "41210",
	"광명":       "41210",
	"안산시 상록구":  "41271",
	"안산시 단원구":  "41273",
	"안산 상록구":   "41271",
	"안산 단원구":   "41273",
	"상록구":      "41271",
	"단원구":      "41273",
	"화성시":      "41590",
	"화성":       "41590",
	"동탄":       "41590",
	"평택시":      "41220",
	"평택":       "41220",
	"시흥시":      "41390",
	"시흥":       "41390",
	"김포시":      "41570",
	"김포":       "41570",
	"광주시":      "41610",
	"경기광주":     "41610",
	"하남시":      "41450",
	"하남":       "41450",
	"구리시":      "41310",
	"구리":       "41310",
	"남양주시":     "41360",
	"남양주":      "41360",
	"의정부시":     "41150",
	"의정부":      "41150",
	"파주시":      "41480",
	"파주":       "41480",
	"과천시":      "41290",
	"과천":       "41290",
	"의왕시":      "41430",
	"의왕":       "41430",
	"군포시":      "41410",
	"군포":       "41410",
}

// regionCoords holds the map center per 시군구 code.
var regionCoords = map[string]Coord{
	"11500": {37.5509, 126.8495},
	"11470": {37.5270, 126.8561},
	"11560": {37.5263, 126.8963},
	"11440": {37.5538, 126.9084},
	"11530": {37.4954, 126.8581},
	"11680": {37.5172, 127.0473},
	"11650": {37.4837, 127.0324},
	"11710": {37.5145, 127.1059},
	"11740": {37.5301, 127.1238},
	"11590": {37.5124, 126.9393},
	"11620": {37.4784, 126.9516},
	"11545": {37.4569, 126.8958},
	"11170": {37.5384, 126.9654},
	"11140": {37.5641, 126.9979},
	"11110": {37.5735, 126.9788},
	"11200": {37.5634, 127.0369},
	"11215": {37.5385, 127.0823},
	"11230": {37.5744, 127.0396},
	"11290": {37.5894, 127.0167},
	"11350": {37.6542, 127.0568},
	"11380": {37.6027, 126.9291},
	"11410": {37.5791, 126.9368},
	"11305": {37.6396, 127.0257},
	"11320": {37.6688, 127.0472},
	"11260": {37.6063, 127.0926},
	"41131": {37.4380, 127.1378},
	"41133": {37.4321, 127.1193},
	"41135": {37.3825, 127.1152},
	"41111": {37.3030, 127.0100},
	"41113": {37.2574, 126.9716},
	"41115": {37.2850, 127.0200},
	"41117": {37.2596, 127.0465},
	"41461": {37.2342, 127.2020},
	"41463": {37.2800, 127.1150},
	"41465": {37.3220, 127.0980},
	"41281": {37.6376, 126.8320},
	"41285": {37.6586, 126.7742},
	"41287": {37.6759, 126.7511},
	"41171": {37.3943, 126.9320},
	"41173": {37.3897, 126.9533},
	"41190": {37.5034, 126.7660},
	"41210": {37.4786, 126.8644},
	"41271": {37.3180, 126.8468},
	"41273": {37.3188, 126.8105},
	"41590": {37.1995, 127.0985},
	"41220": {36.9908, 127.0858},
	"41390": {37.3800, 126.8028},
	"41570": {37.6152, 126.7156},
	"41610": {37.4095, 127.2550},
	"41450": {37.5393, 127.2148},
	"41310": {37.5943, 127.1295},
	"41360": {37.6360, 127.2165},
	"41150": {37.7381, 127.0337},
	"41480": {37.7599, 126.7800},
	"41290": {37.4292, 126.9876},
	"41430": {37.3449, 126.9685},
	"41410": {37.3617, 126.9352},
}

// SigunguCode resolves a region name to its five-digit 시군구 code.
// Gyeonggi aliases win over Seoul; a bare Seoul name without the "구" suffix
// is retried with the suffix appended ("마포" → "마포구").
func SigunguCode(region string) (string, bool) {
	if code, ok := gyeonggiCodes[region]; ok {
		return code, true
	}
	if code, ok := seoulGuCodes[region]; ok {
		return code, true
	}
	if !strings.HasSuffix(region, "구") && !strings.HasSuffix(region, "시") {
		if code, ok := seoulGuCodes[region+"구"]; ok {
			return code, true
		}
	}
	return "", false
}

// GuNameByCode returns the Seoul 구 name for a 법정동 or 시군구 code, or ""
// when the code is not a Seoul district.
func GuNameByCode(code string) string {
	if len(code) > 5 {
		code = code[:5]
	}
	for name, guCode := range seoulGuCodes {
		if guCode == code {
			return name
		}
	}
	return ""
}
