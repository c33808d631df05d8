// Package lexindex is an in-memory inverted index over chunk text, scored
// by TF-IDF. It is maintained alongside the chunk store rather than inside
// it, and persisted to disk as a gob snapshot so a restart does not require
// retokenizing every chunk.
package lexindex

import (
	"context"
	"encoding/gob"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/dsearch/dsearchd/internal/tokenizer"
)

// Posting records one chunk's term frequency for a given term.
type posting struct {
	ChunkID string
	TermFreq int
	DocLen   int // total token count of the chunk, for normalization
}

// Match is a chunk scored against a keyword query.
type Match struct {
	ChunkID string
	Score   float64
}

// snapshot is the gob-serializable form of the index.
type snapshot struct {
	Postings map[string][]posting
	DocFreq  map[string]int
	DocLens  map[string]int
	SourceOf map[string]string // chunkID -> sourceID, for delete-by-source
	NumDocs  int
}

// Index is a thread-safe in-memory inverted index with TF-IDF scoring.
type Index struct {
	mu       sync.RWMutex
	postings map[string][]posting // term -> postings list
	docFreq  map[string]int       // term -> number of chunks containing it
	docLens  map[string]int       // chunkID -> token count
	sourceOf map[string]string    // chunkID -> sourceID
	numDocs  int
}

// New creates an empty lexical index.
func New() *Index {
	return &Index{
		postings: make(map[string][]posting),
		docFreq:  make(map[string]int),
		docLens:  make(map[string]int),
		sourceOf: make(map[string]string),
	}
}

// Upsert tokenizes text and (re)indexes it under chunkID, replacing any
// prior postings for that chunk.
func (idx *Index) Upsert(chunkID, sourceID, text string) {
	tokens := tokenizer.Tokenize(text)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.removeLocked(chunkID)

	termFreq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		termFreq[t]++
	}

	for term, tf := range termFreq {
		idx.postings[term] = append(idx.postings[term], posting{ChunkID: chunkID, TermFreq: tf, DocLen: len(tokens)})
		idx.docFreq[term]++
	}

	idx.docLens[chunkID] = len(tokens)
	idx.sourceOf[chunkID] = sourceID
	idx.numDocs++
}

// Remove deletes a single chunk's postings.
func (idx *Index) Remove(chunkID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(chunkID)
}

// removeLocked assumes idx.mu is held for writing.
func (idx *Index) removeLocked(chunkID string) {
	if _, exists := idx.docLens[chunkID]; !exists {
		return
	}
	for term, postings := range idx.postings {
		kept := postings[:0]
		for _, p := range postings {
			if p.ChunkID == chunkID {
				idx.docFreq[term]--
				continue
			}
			kept = append(kept, p)
		}
		if len(kept) == 0 {
			delete(idx.postings, term)
			delete(idx.docFreq, term)
		} else {
			idx.postings[term] = kept
		}
	}
	delete(idx.docLens, chunkID)
	delete(idx.sourceOf, chunkID)
	idx.numDocs--
}

// RemoveBySource deletes every chunk indexed under sourceID.
func (idx *Index) RemoveBySource(sourceID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var toRemove []string
	for chunkID, sid := range idx.sourceOf {
		if sid == sourceID {
			toRemove = append(toRemove, chunkID)
		}
	}
	for _, chunkID := range toRemove {
		idx.removeLocked(chunkID)
	}
}

// Search scores every chunk containing at least one query term using
// TF-IDF: sum over matched terms t of (tf(t,c)/|c|) * log(N/df(t)), and
// returns the topK highest-scoring chunks ordered by score descending, with
// ties broken by chunk id for determinism.
func (idx *Index) Search(query string, topK int) []Match {
	terms := tokenizer.Tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.numDocs == 0 {
		return nil
	}

	scores := make(map[string]float64)
	seen := make(map[string]bool)
	for _, term := range terms {
		if seen[term] {
			continue
		}
		seen[term] = true

		df, ok := idx.docFreq[term]
		if !ok || df == 0 {
			continue
		}
		idf := math.Log(float64(idx.numDocs) / float64(df))

		for _, p := range idx.postings[term] {
			if p.DocLen == 0 {
				continue
			}
			tf := float64(p.TermFreq) / float64(p.DocLen)
			scores[p.ChunkID] += tf * idf
		}
	}

	matches := make([]Match, 0, len(scores))
	for chunkID, score := range scores {
		if score == 0 {
			continue
		}
		matches = append(matches, Match{ChunkID: chunkID, Score: score})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ChunkID < matches[j].ChunkID
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// NumDocs returns the number of indexed chunks.
func (idx *Index) NumDocs() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.numDocs
}

// Save writes a gob snapshot of the index to path.
func (idx *Index) Save(ctx context.Context, path string) error {
	idx.mu.RLock()
	snap := snapshot{
		Postings: idx.postings,
		DocFreq:  idx.docFreq,
		DocLens:  idx.docLens,
		SourceOf: idx.sourceOf,
		NumDocs:  idx.numDocs,
	}
	idx.mu.RUnlock()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return gob.NewEncoder(f).Encode(snap)
}

// Load restores an index previously written by Save. A missing file yields
// an empty index rather than an error, since a fresh daemon has none yet.
func Load(ctx context.Context, path string) (*Index, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, err
	}

	idx := New()
	idx.postings = snap.Postings
	idx.docFreq = snap.DocFreq
	idx.docLens = snap.DocLens
	idx.sourceOf = snap.SourceOf
	idx.numDocs = snap.NumDocs
	return idx, nil
}
