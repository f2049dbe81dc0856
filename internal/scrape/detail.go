package scrape

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/carlistingworker/helpers"
	"sjsage522/carlistingworker/internal/render"
	"sjsage522/carlistingworker/logger"
)

const (
	detailPathMarker = "/vehicledetail/"

	contentSelector = ".basics-section"
	priceSelector   = "span[data-qa='primary-price']"
	titleSelector   = "h1.listing-title"

	basicsListSelector   = ".basics-section dl.fancy-description-list"
	featuresListSelector = ".features-section dl.fancy-description-list"
	featureItemsSelector = "ul.vehicle-features-list li"
	autoFeaturesSelector = ".auto-corrected-feature-list"

	allFeaturesButton   = "spark-button[data-target='#allFeaturesModal']"
	allFeaturesList     = ".all-features-list"
	allFeaturesItem     = ".all-features-list .all-features-item"
	allFeaturesCloseBtn = ".sds-modal .btn-close"

	galleryImageSelector = "gallery-thumbnails img"
	recallsLinkSelector  = "a.sds-link--ext[data-linkname='check-recalls']"

	contentWaitTimeout = 15 * time.Second
	priceWaitTimeout   = 10 * time.Second
	modalWaitTimeout   = 3 * time.Second

	paymentUnavailable    = "Not available"
	breakdownUnavailable  = "No breakdown available"
	statusNewEntry        = "New Entry"
	extractOuterAttempts  = 2
	featureListJoiner     = "; "
	imageSmallPathToken   = "/small/"
	imageMediumPathToken  = "/medium/"
	failedLoadMessage     = "Failed to load page"
	missingLayoutMessage  = "Page structure not found"
)

// Ordered extraction strategies: the first selector producing a non-empty
// result wins.
var (
	paymentSelectors = []string{
		"#payment-result-value",
		".calculation-result.experience-embedded",
		"[data-qa='payment-amount']",
		".payment-amount",
		".monthly-payment",
	}

	breakdownContainerSelectors = []string{
		".breakdown-section-details--grid, .breakdown-section-details--summary-grid",
		".payment-breakdown",
		".loan-breakdown",
		"[data-qa='payment-breakdown']",
	}

	breakdownPairings = []struct {
		label string
		value string
	}{
		{"dt.breakdown-section-details--title", "dd.breakdown-section-details--value"},
		{".breakdown-title", ".breakdown-value"},
		{"dt", "dd"},
		{".title", ".value"},
	}

	moneyKeywords = []string{"price", "payment", "amount", "paid", "value"}

	bodystyleRegex = regexp.MustCompile(`bodystyle=([^&]+)`)
)

// Extractor runs the per-listing extraction state machine. One Extractor is
// shared by all tasks; per-link state lives on the stack.
type Extractor struct {
	loadPolicy Policy
	sleep      func(time.Duration)
	now        func() time.Time
	log        *logger.Logger
}

// NewExtractor creates an extractor with the standard load retry policy.
func NewExtractor() *Extractor {
	return &Extractor{
		loadPolicy: Policy{MaxAttempts: 3, Backoff: 2 * time.Second},
		sleep:      time.Sleep,
		now:        time.Now,
		log:        logger.ForExtractor(),
	}
}

// ListingID derives a stable id from a detail URL: the path segment after
// the detail marker, or the whole URL when the marker is absent. Never empty
// for a non-empty URL.
func ListingID(detailURL string) string {
	if !strings.Contains(detailURL, detailPathMarker) {
		return detailURL
	}
	tail, err := helpers.GetSplitPart(detailURL, detailPathMarker, 1)
	if err != nil {
		return detailURL
	}
	id, _ := helpers.GetSplitPart(tail, "/", 0)
	if id == "" {
		return detailURL
	}
	return id
}

// Extract pulls one listing. The outcome is exactly one of Record or
// Failure. Load and structure failures are terminal; anything else gets a
// second outer attempt after a backoff keyed by the failure class.
func (e *Extractor) Extract(session render.Session, detailURL string) (*Record, *Failure) {
	id := ListingID(detailURL)

	var lastErr error
	for attempt := 0; attempt < extractOuterAttempts; attempt++ {
		record, failure, err := e.attempt(session, detailURL, id)
		if failure != nil {
			return nil, failure
		}
		if err == nil {
			return record, nil
		}

		lastErr = err
		e.log.Debug().Err(err).Str("id", id).Int("attempt", attempt+1).Msg("Extraction attempt failed")
		if attempt < extractOuterAttempts-1 {
			e.sleep(BackoffFor(err))
		}
	}

	failure := newFailure(id, lastErr.Error())
	return nil, &failure
}

func (e *Extractor) attempt(session render.Session, detailURL, id string) (*Record, *Failure, error) {
	err := e.loadPolicy.Do(func() error {
		return session.Navigate(detailURL)
	})
	if err != nil {
		failure := newFailure(id, failedLoadMessage)
		return nil, &failure, nil
	}

	if err := session.WaitReady(contentSelector, contentWaitTimeout); err != nil {
		failure := newFailure(id, missingLayoutMessage)
		return nil, &failure, nil
	}

	// The price widget renders late; extraction proceeds either way and the
	// price is simply read as empty below.
	if err := session.WaitReady(priceSelector, priceWaitTimeout); err != nil {
		e.log.Debug().Str("id", id).Msg("Price element never appeared")
	}

	doc, err := session.Document()
	if err != nil {
		return nil, nil, err
	}

	record := &Record{
		ID:       id,
		Basics:   make(map[string]string),
		Features: make(map[string]string),
	}

	record.Title = strings.TrimSpace(doc.Find(titleSelector).First().Text())
	record.Price = strings.TrimSpace(doc.Find(priceSelector).First().Text())

	parts := ParseTitle(record.Title)
	record.Year, record.Make, record.Model = parts.Year, parts.Make, parts.Model

	e.extractBasics(doc, record)
	e.extractFeatures(doc, record)
	e.extractAdditionalFeatures(doc, record)
	e.extractAllFeatures(session, record)
	e.extractImages(doc, record)
	e.extractPayment(doc, record)
	e.extractBodystyle(doc, record)

	record.StatusFlag = statusNewEntry
	record.LastUpdated = e.now()

	return record, nil, nil
}

// extractBasics reads the labeled definition list into sanitized sparse-field
// keys. Mileage specifically is cleaned to a number.
func (e *Extractor) extractBasics(doc *goquery.Document, record *Record) {
	list := doc.Find(basicsListSelector).First()
	labels := list.Find("dt")
	values := list.Find("dd")

	count := labels.Length()
	if values.Length() < count {
		count = values.Length()
	}

	for i := 0; i < count; i++ {
		key := SanitizeKey(labels.Eq(i).Text())
		value := strings.TrimSpace(values.Eq(i).Text())
		if key == "" || value == "" {
			continue
		}
		if key == "mileage" {
			record.Mileage = CleanNumber(value)
			continue
		}
		record.Basics[key] = value
	}
}

// extractFeatures reads grouped feature lists into features_<group> keys.
// Empty groups are omitted.
func (e *Extractor) extractFeatures(doc *goquery.Document, record *Record) {
	list := doc.Find(featuresListSelector).First()
	labels := list.Find("dt")
	values := list.Find("dd")

	count := labels.Length()
	if values.Length() < count {
		count = values.Length()
	}

	for i := 0; i < count; i++ {
		category := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(labels.Eq(i).Text())), " ", "_")
		if category == "" {
			continue
		}

		var items []string
		values.Eq(i).Find(featureItemsSelector).Each(func(_ int, item *goquery.Selection) {
			if text := strings.TrimSpace(item.Text()); text != "" {
				items = append(items, text)
			}
		})
		if len(items) > 0 {
			record.Features["features_"+category] = strings.Join(items, featureListJoiner)
		}
	}
}

func (e *Extractor) extractAdditionalFeatures(doc *goquery.Document, record *Record) {
	if text := strings.TrimSpace(doc.Find(autoFeaturesSelector).First().Text()); text != "" {
		record.AdditionalPopularFeatures = text
	}
}

// extractAllFeatures opens the all-features modal, reads its items and
// closes it again. Every sub-step is best-effort; any failure only omits
// this field.
func (e *Extractor) extractAllFeatures(session render.Session, record *Record) {
	if err := session.Click(allFeaturesButton); err != nil {
		e.log.Debug().Err(err).Str("id", record.ID).Msg("All-features modal did not open")
		return
	}
	if err := session.WaitReady(allFeaturesList, modalWaitTimeout); err != nil {
		e.log.Debug().Str("id", record.ID).Msg("All-features modal content never appeared")
		return
	}

	doc, err := session.Document()
	if err != nil {
		return
	}

	var items []string
	doc.Find(allFeaturesItem).Each(func(_ int, item *goquery.Selection) {
		if text := strings.TrimSpace(item.Text()); text != "" {
			items = append(items, text)
		}
	})
	if len(items) > 0 {
		record.AllFeatures = strings.Join(items, featureListJoiner)
	}

	if err := session.Click(allFeaturesCloseBtn); err != nil {
		e.log.Debug().Err(err).Str("id", record.ID).Msg("All-features modal did not close")
	}
}

// extractImages reads gallery thumbnails, requesting the medium resolution
// variant of each source. Images with no source at all are omitted.
func (e *Extractor) extractImages(doc *goquery.Document, record *Record) {
	doc.Find(galleryImageSelector).Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		if src == "" {
			return
		}
		src = strings.ReplaceAll(src, imageSmallPathToken, imageMediumPathToken)

		modalSrc, _ := img.Attr("modal-src")
		if modalSrc == "" {
			modalSrc = src
		}
		alt, _ := img.Attr("alt")

		record.Images = append(record.Images, Image{Src: src, ModalSrc: modalSrc, Alt: alt})
	})
}

// extractPayment reads the monthly payment figure and its breakdown through
// ordered selector chains. Missing data degrades to the documented sentinel
// strings, never to an error.
func (e *Extractor) extractPayment(doc *goquery.Document, record *Record) {
	defer func() {
		// A malformed payment widget must never fail the record
		if r := recover(); r != nil {
			e.log.Debug().Interface("panic", r).Str("id", record.ID).Msg("Payment extraction recovered")
			record.StartPayment = Amount{Sentinel: paymentUnavailable}
			record.PaymentBreakdown = Breakdown{Sentinel: paymentUnavailable}
		}
	}()

	var paymentText string
	for _, selector := range paymentSelectors {
		if text := strings.TrimSpace(doc.Find(selector).First().Text()); text != "" {
			paymentText = text
			break
		}
	}

	record.StartPayment = Amount{Sentinel: paymentUnavailable}
	if paymentText != "" {
		if cleaned := CleanNumber(paymentText); cleaned != nil {
			record.StartPayment = Amount{Value: cleaned}
		}
	}

	record.PaymentBreakdown = Breakdown{
		Items:    e.extractBreakdown(doc),
		Sentinel: breakdownUnavailable,
	}
}

// extractBreakdown walks the ordered container selectors and, within the
// first container yielding pairs, the ordered label/value pairings. Money
// labeled values are cleaned to numbers.
func (e *Extractor) extractBreakdown(doc *goquery.Document) map[string]BreakdownValue {
	items := make(map[string]BreakdownValue)

	for _, containerSelector := range breakdownContainerSelectors {
		doc.Find(containerSelector).EachWithBreak(func(_ int, section *goquery.Selection) bool {
			for _, pairing := range breakdownPairings {
				labels := section.Find(pairing.label)
				values := section.Find(pairing.value)
				if labels.Length() == 0 || values.Length() == 0 {
					continue
				}

				count := labels.Length()
				if values.Length() < count {
					count = values.Length()
				}
				for i := 0; i < count; i++ {
					label := strings.TrimSpace(labels.Eq(i).Text())
					value := strings.TrimSpace(values.Eq(i).Text())
					if label == "" || value == "" {
						continue
					}
					key := SanitizeKey(label)
					if isMoneyKey(key) {
						items[key] = BreakdownValue{Number: CleanNumber(value), Numeric: true}
					} else {
						items[key] = BreakdownValue{Text: value}
					}
				}
				// The first pairing that yields pairs wins for this section
				break
			}
			return len(items) == 0
		})
		if len(items) > 0 {
			break
		}
	}

	return items
}

func isMoneyKey(key string) bool {
	for _, keyword := range moneyKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// extractBodystyle recovers the body category from the check-recalls link's
// query string, with a regex fallback for malformed hrefs.
func (e *Extractor) extractBodystyle(doc *goquery.Document, record *Record) {
	href, ok := doc.Find(recallsLinkSelector).First().Attr("href")
	if !ok || href == "" {
		return
	}

	var bodystyle string
	if strings.Contains(href, "?") {
		if parsed, err := url.Parse(href); err == nil {
			bodystyle = parsed.Query().Get("bodystyle")
		}
	}
	if bodystyle == "" {
		if match := bodystyleRegex.FindStringSubmatch(href); match != nil {
			bodystyle = match[1]
		}
	}

	if bodystyle != "" {
		record.Bodystyle = bodystyle
	}
}
