package config

const (
	defaultConfigPath          = "~/.config/hardsub/config.toml"
	defaultYtDlpBinary         = "yt-dlp"
	defaultYtDlpFormat         = "bestvideo[height<=1080][ext=mp4]+bestaudio[ext=m4a]/best[height<=1080][ext=mp4]/best"
	defaultAcquireTimeout      = 1800
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultIntervalSeconds     = 0.5
	defaultCropRatio           = 0.2
	defaultJPEGQuality         = 2
	defaultOCRCommand          = "tesseract {image} stdout -l {lang} --psm 6"
	defaultOCRLanguage         = "chi_sim"
	defaultOCRWorkers          = 4
	defaultOCRTimeout          = 60
	defaultSimilarityThreshold = 0.8
	defaultMaxEmptyGap         = 2
	defaultMinRunLength        = 1
	defaultScript              = "han"
	defaultTieBreak            = "longest"
	defaultMetric              = "levenshtein"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:  defaultWorkDir(),
			StateDir: defaultStateDir(),
		},
		Acquire: Acquire{
			YtDlpBinary:    defaultYtDlpBinary,
			Format:         defaultYtDlpFormat,
			TimeoutSeconds: defaultAcquireTimeout,
		},
		Frames: Frames{
			FFmpegBinary:    defaultFFmpegBinary,
			FFprobeBinary:   defaultFFprobeBinary,
			IntervalSeconds: defaultIntervalSeconds,
			CropRatio:       defaultCropRatio,
			JPEGQuality:     defaultJPEGQuality,
		},
		OCR: OCR{
			Command:        defaultOCRCommand,
			Language:       defaultOCRLanguage,
			Workers:        defaultOCRWorkers,
			TimeoutSeconds: defaultOCRTimeout,
			Cache:          true,
		},
		Stitch: Stitch{
			SimilarityThreshold: defaultSimilarityThreshold,
			MaxEmptyGap:         defaultMaxEmptyGap,
			MinRunLength:        defaultMinRunLength,
			Script:              defaultScript,
			TieBreak:            defaultTieBreak,
			Metric:              defaultMetric,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
