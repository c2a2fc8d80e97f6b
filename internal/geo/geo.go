// Package geo содержит расчёт расстояния и стоимости доставки.
package geo

import "math"

const earthRadiusKm = 6371.0

// Distance вычисляет расстояние по большому кругу между двумя точками в километрах
// по формуле гаверсинусов.
func Distance(originLat, originLng, destLat, destLng float64) float64 {
	dLat := toRadians(destLat - originLat)
	dLng := toRadians(destLng - originLng)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(originLat))*math.Cos(toRadians(destLat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	// Защита от выхода аргумента за [0,1] из-за ошибок округления
	if a > 1 {
		a = 1
	}

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Fee возвращает стоимость доставки в целых денежных единицах
// по ступенчатой шкале от расстояния в километрах.
func Fee(distanceKm float64) int64 {
	switch {
	case distanceKm <= 5:
		return 200
	case distanceKm <= 10:
		return 300
	case distanceKm <= 15:
		return 400
	case distanceKm <= 20:
		return 500
	default:
		excess := int64(math.Ceil(distanceKm - 20))
		return 500 + 50*excess
	}
}
