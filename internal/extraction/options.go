package extraction

import (
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"hardsub/internal/acquire"
	"hardsub/internal/config"
	"hardsub/internal/services"
	"hardsub/internal/stitch"
	"hardsub/internal/textutil"
)

// StitchOptions converts the [stitch] config section into engine options.
func StitchOptions(cfg *config.Config, logger *slog.Logger) (stitch.Options, error) {
	script, err := stitch.ParseScript(cfg.Stitch.Script)
	if err != nil {
		return stitch.Options{}, services.Wrap(services.ErrConfiguration, "stitch", "options", "", err)
	}
	tieBreak, err := stitch.ParseTieBreak(cfg.Stitch.TieBreak)
	if err != nil {
		return stitch.Options{}, services.Wrap(services.ErrConfiguration, "stitch", "options", "", err)
	}
	metric, err := stitch.ParseMetric(cfg.Stitch.Metric)
	if err != nil {
		return stitch.Options{}, services.Wrap(services.ErrConfiguration, "stitch", "options", "", err)
	}
	opts := stitch.Options{
		SimilarityThreshold: cfg.Stitch.SimilarityThreshold,
		MaxEmptyGap:         cfg.Stitch.MaxEmptyGap,
		MinRunLength:        cfg.Stitch.MinRunLength,
		Script:              script,
		TieBreak:            tieBreak,
		Metric:              metric,
		Logger:              logger,
	}
	if err := opts.Validate(); err != nil {
		return stitch.Options{}, services.Wrap(services.ErrConfiguration, "stitch", "options", "", err)
	}
	return opts, nil
}

// DefaultOutput picks the output file when none is given. A local video
// gets a .txt beside it; a URL gets subtitles_<id>.txt in the working
// directory, where id is the v= query value or the last path segment.
func DefaultOutput(source string) string {
	source = strings.TrimSpace(source)
	if !acquire.IsURL(source) {
		stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
		name := textutil.SanitizeFileName(stem)
		if name == "" {
			name = "subtitles"
		}
		return filepath.Join(filepath.Dir(source), name+".txt")
	}
	u, err := url.Parse(source)
	if err != nil {
		return "subtitles.txt"
	}
	id := u.Query().Get("v")
	if id == "" {
		id = path.Base(strings.TrimSuffix(u.Path, "/"))
	}
	token := textutil.SanitizeToken(id)
	return textutil.Ternary(token == "unknown", "subtitles.txt", "subtitles_"+token+".txt")
}
