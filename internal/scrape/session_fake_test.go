package scrape

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// fakeSession is a scripted render.Session: it serves canned HTML per URL
// and answers waits and clicks from whatever document is current.
type fakeSession struct {
	mu        sync.Mutex
	html      string
	pages     map[string]string
	navErrs   map[string]error
	clickHTML map[string]string
	heights   []float64
	heightIdx int
	scrolls   int
	navigated []string
	clicked   []string
	docErr    error
	alive     bool
	closed    bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		pages:     make(map[string]string),
		navErrs:   make(map[string]error),
		clickHTML: make(map[string]string),
		heights:   []float64{1000},
		alive:     true,
	}
}

func (s *fakeSession) Navigate(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.navErrs[url]; err != nil {
		return err
	}
	s.navigated = append(s.navigated, url)
	if html, ok := s.pages[url]; ok {
		s.html = html
		s.heightIdx = 0
	}
	return nil
}

func (s *fakeSession) WaitReady(selector string, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.matches(selector) {
		return nil
	}
	return fmt.Errorf("wait for %q: timeout", selector)
}

func (s *fakeSession) Click(selector string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.matches(selector) {
		return fmt.Errorf("click %q: node not found", selector)
	}
	s.clicked = append(s.clicked, selector)
	if html, ok := s.clickHTML[selector]; ok {
		s.html = html
	}
	return nil
}

func (s *fakeSession) Eval(script string, out interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.Contains(script, "scrollTo") {
		s.scrolls++
		return nil
	}
	if strings.Contains(script, "scrollHeight") && out != nil {
		height := s.heights[len(s.heights)-1]
		if s.heightIdx < len(s.heights) {
			height = s.heights[s.heightIdx]
			s.heightIdx++
		}
		if target, ok := out.(*float64); ok {
			*target = height
		}
	}
	return nil
}

func (s *fakeSession) Document() (*goquery.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docErr != nil {
		return nil, s.docErr
	}
	return goquery.NewDocumentFromReader(strings.NewReader(s.html))
}

func (s *fakeSession) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSession) matches(selector string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.html))
	if err != nil {
		return false
	}
	return doc.Find(selector).Length() > 0
}
