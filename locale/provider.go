package locale

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
)

//go:embed default.json
var defaultLocales []byte

type LocalizationProvider struct {
	locales *LocalizationFileInfo
}

// NewLocalizationProvider loads filePath, or the embedded defaults when
// filePath is empty.
func NewLocalizationProvider(filePath string) (*LocalizationProvider, error) {
	data := defaultLocales

	if filePath != "" {
		fileData, err := os.ReadFile(filePath)

		if err != nil {
			return nil, errors.Wrap(err, "read localization file")
		}

		data = fileData
	}

	var locales LocalizationFileInfo

	if err := json.Unmarshal(data, &locales); err != nil {
		return nil, errors.Wrap(err, "parse localization file")
	}

	logrus.WithField("localeKeysAmount", len(locales.LocalizedContent)).Infoln("loaded localization file")

	return &LocalizationProvider{
		locales: &locales,
	}, nil
}

func (l *LocalizationProvider) GetDefaultLocalization(key string, args ...any) string {
	defaultCulture := l.locales.DefaultCulture

	return l.GetWithCulture(defaultCulture, key, args...)
}

func (l *LocalizationProvider) GetWithCulture(culture, key string, args ...any) string {
	contentLocalizations, ok := l.locales.LocalizedContent[key]

	if !ok {
		logrus.WithField("key", key).Debug("not found content localization by provided key")
		return key
	}

	content, ok := contentLocalizations[culture]

	if !ok {
		logrus.WithField("culture", culture).Debug("not found content localization by provided language")
		content, ok = contentLocalizations[l.locales.DefaultCulture]

		if !ok {
			logrus.Debug("not found content localization by default language")
			return key
		}
	}

	if len(args) > 0 {
		return fmt.Sprintf(content, args...)
	}

	return content
}
