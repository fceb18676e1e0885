package annotate

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/lcvriend/toponym-extraction/internal/model"
)

// Command is one parsed reviewer input. The original interface overloaded
// free text as both "new phrase" and "abort"; here every action is a
// distinct command.
type Command int

const (
	CmdPositive Command = iota
	CmdNegative
	CmdUncertain
	CmdNewSearch // "/ <phrase>": queue a new phrase to search next
	CmdQuit      // ".": end the session, discarding the unsaved phrase
)

// ParseCommand parses a reviewer input line. The string result is the new
// search phrase for CmdNewSearch.
func ParseCommand(line string) (Command, string, error) {
	line = strings.TrimSpace(line)
	switch line {
	case "+":
		return CmdPositive, "", nil
	case "-":
		return CmdNegative, "", nil
	case "?":
		return CmdUncertain, "", nil
	case ".":
		return CmdQuit, "", nil
	}
	if phrase, ok := strings.CutPrefix(line, "/"); ok {
		phrase = strings.TrimSpace(phrase)
		if phrase == "" {
			return 0, "", fmt.Errorf("empty search phrase")
		}
		return CmdNewSearch, phrase, nil
	}
	return 0, "", fmt.Errorf("unknown input %q", line)
}

// Session runs interactive phrase annotation over a cleaned corpus. All I/O
// goes through the injected reader and writer.
type Session struct {
	corpus     []model.Article
	path       string
	log        Log
	logged     map[string]bool
	sampleSize int
	in         *bufio.Scanner
	out        io.Writer
	rng        *rand.Rand
	now        func() time.Time
}

// NewSession creates a session persisting to the log at path. An existing
// log is loaded so already-annotated phrases are skipped.
func NewSession(corpus []model.Article, path string, sampleSize int, in io.Reader, out io.Writer) (*Session, error) {
	log, err := LoadLog(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return &Session{
		corpus:     corpus,
		path:       path,
		log:        log,
		logged:     log.Phrases(),
		sampleSize: sampleSize,
		in:         bufio.NewScanner(in),
		out:        out,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		now:        time.Now,
	}, nil
}

// Run annotates each phrase in order, skipping phrases already in the log.
// New-search commands push a phrase onto the front of the queue. The log is
// saved on every completed phrase, so a later quit loses nothing already
// judged; only the in-progress phrase's judgments are discarded.
func (s *Session) Run(phrases []string) error {
	queue := make([]string, len(phrases))
	copy(queue, phrases)

	for len(queue) > 0 {
		phrase := queue[0]
		queue = queue[1:]
		if s.logged[phrase] {
			continue
		}

		pending, next, quit, err := s.annotatePhrase(phrase)
		if err != nil {
			return err
		}
		if quit {
			break
		}
		if len(pending) > 0 {
			s.log = append(s.log, pending...)
			s.logged[phrase] = true
			if err := SaveLog(s.path, s.log); err != nil {
				return err
			}
		}
		if next != "" {
			// The preempted phrase goes back behind the new search so the
			// session still works through its full list.
			queue = append([]string{next, phrase}, queue...)
		}
	}
	return nil
}

// annotatePhrase collects judgments for one phrase. It returns the pending
// annotations (empty when the phrase session was aborted), an optional new
// search phrase, and whether the reviewer quit.
func (s *Session) annotatePhrase(phrase string) ([]model.Annotation, string, bool, error) {
	matches := s.findMatches(phrase)
	if len(matches) == 0 {
		fmt.Fprintf(s.out, "Phrase %q not found\n", phrase)
		nf := model.Annotation{
			Phrase:    phrase,
			Judgment:  model.JudgmentNotFound,
			Timestamp: s.now(),
		}
		return []model.Annotation{nf}, "", false, nil
	}

	n := s.sampleSize
	if len(matches) < n {
		n = len(matches)
	}
	sample := s.sample(matches, n)

	var pending []model.Annotation
	for i, article := range sample {
		s.show(phrase, article, i+1, n, len(matches))

		for {
			fmt.Fprintf(s.out,
				"Please annotate the sample above:\n"+
					"[+] positive  [-] negative  [?] uncertain\n"+
					"[/ <phrase>] search a new phrase  [.] quit (current phrase will NOT be saved)\n> ")
			if !s.in.Scan() {
				// Input exhausted: treat as quit, discarding the unsaved phrase.
				return nil, "", true, s.in.Err()
			}
			cmd, next, err := ParseCommand(s.in.Text())
			if err != nil {
				fmt.Fprintf(s.out, "%v\n", err)
				continue
			}
			switch cmd {
			case CmdQuit:
				return nil, "", true, nil
			case CmdNewSearch:
				return nil, next, false, nil
			case CmdPositive, CmdNegative, CmdUncertain:
				pending = append(pending, model.Annotation{
					Phrase:    strings.TrimSpace(phrase),
					ArticleID: article.ID,
					Judgment:  judgmentFor(cmd),
					Timestamp: s.now(),
				})
			}
			break
		}
	}
	return pending, "", false, nil
}

// findMatches returns the articles containing the phrase, first as a
// whole-word match, falling back to a plain substring match.
func (s *Session) findMatches(phrase string) []model.Article {
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(phrase) + `\b`)
	var matches []model.Article
	if err == nil {
		for _, a := range s.corpus {
			if re.MatchString(a.BodyText) {
				matches = append(matches, a)
			}
		}
	}
	if len(matches) > 0 {
		return matches
	}
	for _, a := range s.corpus {
		if strings.Contains(a.BodyText, phrase) {
			matches = append(matches, a)
		}
	}
	return matches
}

// sample draws n articles without replacement.
func (s *Session) sample(matches []model.Article, n int) []model.Article {
	perm := s.rng.Perm(len(matches))
	out := make([]model.Article, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, matches[idx])
	}
	return out
}

// show prints the sample context: header plus every paragraph of the
// filtered body containing the phrase.
func (s *Session) show(phrase string, a model.Article, sample, n, results int) {
	fmt.Fprintf(s.out, "\nPHRASE: %s\n", phrase)
	fmt.Fprintf(s.out, "SAMPLE: %d of %d | SOURCE: %s | RESULTS: %d | %s\n", sample, n, a.Source, results, a.ID)
	fmt.Fprintf(s.out, "%s\n---\n", a.Title)
	for _, p := range a.FilteredBody {
		if strings.Contains(p, phrase) {
			fmt.Fprintf(s.out, "%s\n", p)
		}
	}
}

func judgmentFor(cmd Command) model.Judgment {
	switch cmd {
	case CmdPositive:
		return model.JudgmentPositive
	case CmdNegative:
		return model.JudgmentNegative
	default:
		return model.JudgmentUncertain
	}
}
