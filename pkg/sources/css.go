package sources

import (
	"fmt"
	"time"
)

const defaultWaitTimeoutMs = 15000

// NewCSSExtractor builds a selector extractor configured entirely from the
// source's config map.
func NewCSSExtractor(src Source) (Extractor, error) {
	rules, err := rulesFromConfig(src)
	if err != nil {
		return nil, err
	}
	if rules.LinkSelector == "" {
		return nil, fmt.Errorf("config %s is required for source %q", ConfigLinkSelectorKey, src.ID)
	}
	return newExtractor(rules)
}

func rulesFromConfig(src Source) (Rules, error) {
	body := ConfigString(src, ConfigBodySelectorKey, "")
	if body == "" {
		return Rules{}, fmt.Errorf("config %s is required for source %q", ConfigBodySelectorKey, src.ID)
	}
	waitMs := ConfigInt(src, ConfigWaitTimeoutMsKey, defaultWaitTimeoutMs)

	return Rules{
		SourceName:        src.Name,
		BaseURL:           src.BaseURL,
		LinkSelector:      ConfigString(src, ConfigLinkSelectorKey, ""),
		WaitSelector:      ConfigString(src, ConfigWaitSelectorKey, ""),
		WaitTimeout:       time.Duration(waitMs) * time.Millisecond,
		ExcludeSubstrings: ConfigStrings(src, ConfigExcludeSubstringsKey),
		MaxScrolls:        src.MaxScrolls,
		ScrollWait:        src.ScrollWait(),
		TitleSelector:     ConfigString(src, ConfigTitleSelectorKey, defaultTitleSelector),
		PublishedSelector: ConfigString(src, ConfigPublishedSelectorKey, defaultPublishedSelector),
		BodySelector:      body,
	}, nil
}
