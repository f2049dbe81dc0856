package scrape

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/carlistingworker/internal/metrics"
	"sjsage522/carlistingworker/internal/render"
	"sjsage522/carlistingworker/logger"
)

const (
	cardSelector       = "div.vehicle-card"
	cardLinkSelector   = "a.vehicle-card-link"
	cardWaitTimeout    = 10 * time.Second
	scrollSettleDelay  = 500 * time.Millisecond
	scrollHeightScript = "document.body.scrollHeight"
	scrollToEndScript  = "window.scrollTo(0, document.body.scrollHeight)"
)

// Collector paginates search result pages, drives infinite scroll and
// harvests detail-page links. Collector failures only ever shorten the link
// list; they never abort the whole scrape.
type Collector struct {
	session    render.Session
	baseURL    string
	loadPolicy Policy
	sleep      func(time.Duration)
	log        *logger.Logger
}

// NewCollector creates a collector bound to one session.
func NewCollector(session render.Session, baseURL string) *Collector {
	return &Collector{
		session:    session,
		baseURL:    baseURL,
		loadPolicy: Policy{MaxAttempts: 3, Backoff: 2 * time.Second},
		sleep:      time.Sleep,
		log:        logger.ForCollector(),
	}
}

// Collect walks pages [startPage, endPage], returning links in discovery
// order. Pagination stops at the first unreachable or empty page.
func (c *Collector) Collect(filter Filter, startPage, endPage int) []Link {
	var links []Link

	for page := startPage; page <= endPage; page++ {
		pageURL := filter.SearchURL(c.baseURL, page)

		err := c.loadPolicy.Do(func() error {
			return c.session.Navigate(pageURL)
		})
		if err != nil {
			c.log.Warn().Err(err).Int("page", page).Msg("Search page unreachable, stopping pagination")
			break
		}

		if err := c.session.WaitReady(cardSelector, cardWaitTimeout); err != nil {
			c.log.Info().Int("page", page).Msg("No listing cards appeared, stopping pagination")
			break
		}

		if err := c.scrollToEnd(); err != nil {
			c.log.Debug().Err(err).Int("page", page).Msg("Infinite scroll aborted early")
		}

		pageLinks, err := c.harvest(page)
		if err != nil {
			c.log.Warn().Err(err).Int("page", page).Msg("Failed to read cards, stopping pagination")
			break
		}

		links = append(links, pageLinks...)
		c.log.Debug().Int("page", page).Int("links", len(pageLinks)).Msg("Page harvested")

		// An empty page means the result set ended before endPage
		if len(pageLinks) == 0 {
			break
		}
	}

	metrics.LinksCollected.Add(float64(len(links)))
	return links
}

// scrollToEnd scrolls until two consecutive height reads match, which bounds
// the loop to the page's actual content height.
func (c *Collector) scrollToEnd() error {
	var lastHeight float64
	if err := c.session.Eval(scrollHeightScript, &lastHeight); err != nil {
		return err
	}

	for {
		if err := c.session.Eval(scrollToEndScript, nil); err != nil {
			return err
		}
		c.sleep(scrollSettleDelay)

		var newHeight float64
		if err := c.session.Eval(scrollHeightScript, &newHeight); err != nil {
			return err
		}
		if newHeight == lastHeight {
			return nil
		}
		lastHeight = newHeight
	}
}

// harvest reads every card's link anchor after scroll settles. Cards without
// the expected anchor are skipped, not fatal.
func (c *Collector) harvest(page int) ([]Link, error) {
	doc, err := c.session.Document()
	if err != nil {
		return nil, err
	}

	var links []Link
	doc.Find(cardSelector).Each(func(_ int, card *goquery.Selection) {
		href, ok := card.Find(cardLinkSelector).First().Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}
		links = append(links, Link{URL: href, Page: page})
	})
	return links, nil
}
