package flow

// Calculate derives the volume added (liters) and the instantaneous flow rate
// (liters/minute) from a pulse count. kFactor is the sensor's pulses-per-liter
// calibration constant. The rate is zero when no pulses arrived or no time
// elapsed.
func Calculate(pulses int, kFactor float64, elapsedSeconds float64) (litersAdded, rateLPM float64) {
	if kFactor <= 0 {
		return 0, 0
	}

	litersAdded = float64(pulses) / kFactor

	if elapsedSeconds > 0 && pulses > 0 {
		rateLPM = (float64(pulses) / elapsedSeconds) * (60.0 / kFactor)
	}

	return litersAdded, rateLPM
}
