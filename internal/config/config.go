// SPDX-License-Identifier: MIT
package config

import "spectra/internal/spectrum"

// Names accepted by analysis.engine and --engine.
const (
	EngineFFT   = "fft"
	EngineDFT   = "dft"
	EngineGonum = "gonum"
)

// Core configuration constants that define the defaults and limits of an
// analysis run.
const (
	DefaultConfigFile = "spectra.yaml" // Searched in the working directory when no path is given
	DefaultEnvFile    = ".env"         // Optional dotenv file loaded before ENV_ overrides

	DefaultLogLevel  = "info"
	DefaultEngine    = EngineFFT
	DefaultSeconds   = 1 // Whole seconds of audio per analysis block
	DefaultChannel   = AllChannels
	DefaultParallel  = false
	DefaultSendRate  = 30.0 // Frames per second pushed to network transports
	DefaultMaxPoints = spectrum.DefaultMaxPoints

	// AllChannels selects every channel of the file.
	AllChannels = -1

	MaxSeconds  = 3600  // One hour of audio per block
	MaxSendRate = 1000. // Frames per second
)

// Engines lists the accepted engine names.
func Engines() []string {
	return []string{EngineFFT, EngineDFT, EngineGonum}
}

// Default returns the built-in configuration used when no file is found.
func Default() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Analysis: AnalysisConfig{
			Engine:    DefaultEngine,
			Seconds:   DefaultSeconds,
			Channel:   DefaultChannel,
			Parallel:  DefaultParallel,
			MaxPoints: DefaultMaxPoints,
			Bands:     spectrum.DefaultBands(),
		},
		Transport: TransportConfig{
			SendRate: DefaultSendRate,
		},
	}
}
