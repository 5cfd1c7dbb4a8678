package odsay

import "strings"

// Coord is a WGS84 station location.
type Coord struct {
	Lat float64
	Lng float64
}

// stationCoords holds commute destinations by subway station name. Mostly
// the major business districts plus common residential hubs.
var stationCoords = map[string]Coord{
	"여의도역":     {37.5216, 126.9243},
	"강남역":      {37.4979, 127.0276},
	"삼성역":      {37.5089, 127.0631},
	"선릉역":      {37.5046, 127.0486},
	"역삼역":      {37.5007, 127.0365},
	"교대역":      {37.4934, 127.0145},
	"서초역":      {37.4916, 127.0077},
	"시청역":      {37.5652, 126.9772},
	"광화문역":     {37.5709, 126.9768},
	"종각역":      {37.5700, 126.9830},
	"을지로입구역":   {37.5660, 126.9822},
	"충정로역":     {37.5597, 126.9636},
	"홍대입구역":    {37.5571, 126.9239},
	"합정역":      {37.5498, 126.9139},
	"영등포구청역":   {37.5257, 126.8963},
	"당산역":      {37.5347, 126.9023},
	"신도림역":     {37.5089, 126.8913},
	"가산디지털단지역": {37.4816, 126.8826},
	"구로디지털단지역": {37.4852, 126.9015},
	"판교역":      {37.3947, 127.1112},
	"정자역":      {37.3662, 127.1085},
	"서울역":      {37.5547, 126.9707},
	"용산역":      {37.5299, 126.9648},
	"왕십리역":     {37.5614, 127.0378},
	"건대입구역":    {37.5404, 127.0696},
	"잠실역":      {37.5133, 127.1001},
	"천호역":      {37.5388, 127.1236},
	"목동역":      {37.5274, 126.8754},
	"발산역":      {37.5581, 126.8378},
	"마곡역":      {37.5621, 126.8256},
}

// StationCoords resolves a station name to its coordinates. The "역" suffix
// is optional ("강남" and "강남역" both resolve).
func StationCoords(station string) (Coord, bool) {
	if !strings.HasSuffix(station, "역") {
		station += "역"
	}
	c, ok := stationCoords[station]
	return c, ok
}
