package detector

import "anpr-pipeline/internal/config"

func execTestConfig() config.DetectorConfig {
	return config.DetectorConfig{
		Command:             "anpr-detect",
		ConfidenceThreshold: 0.7,
		ExtractionFPS:       2,
	}
}
