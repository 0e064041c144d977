package feed

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Source is one configured feed plus the label its entries carry.
type Source struct {
	Name  string `yaml:"name"`
	Label Label  `yaml:"label"`
	URL   string `yaml:"url"`
}

// Sources is the YAML feed configuration:
//
//	sources:
//	  - name: g1
//	    label: general
//	    url: https://g1.globo.com/rss/g1/
//	trending: https://trends.google.com/trending/rss?geo=BR
//	topic_search: https://news.google.com/rss/search?q=%s&hl=pt-BR&gl=BR&ceid=BR:pt-419
type Sources struct {
	Sources     []Source `yaml:"sources"`
	Trending    string   `yaml:"trending"`
	TopicSearch string   `yaml:"topic_search"`
}

// LoadSources reads the feed source list from a YAML file.
func LoadSources(path string) (*Sources, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Sources
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("no sources configured in %s", path)
	}
	return &cfg, nil
}

// SearchURL expands the topic-search template for one query term.
func (s *Sources) SearchURL(topic string) string {
	return fmt.Sprintf(s.TopicSearch, url.QueryEscape(topic))
}
