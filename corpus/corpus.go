package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	log "github.com/golang/glog"

	"github.com/bobonovski/ldavb/matrix"
)

var ErrEmptyCorpus = errors.New("corpus: no documents")

// Corpus holds D documents as padded rows of word ids. Row d of Words
// is only meaningful up to DocLens[d]. DocIds[d] is the id the document
// carried in its input file, or d when built in memory.
type Corpus struct {
	VocabSize int
	DocNum    int
	MaxDocLen int
	DocLens   []int
	DocIds    []uint32
	Words     *matrix.Uint32Matrix
}

type WordCount struct {
	WordId uint32
	Count  uint32
}

func ExpandWords(wcs []*WordCount) []uint32 {
	var words []uint32
	for _, wc := range wcs {
		for i := uint32(0); i < wc.Count; i += 1 {
			words = append(words, wc.WordId)
		}
	}
	return words
}

// Doc returns the word ids of document d.
func (c *Corpus) Doc(d int) []uint32 {
	return c.Words.Row(d)[:c.DocLens[d]]
}

// FromDocs packs docs into a padded Corpus. If vocabSize is zero it is
// inferred from the largest word id, otherwise every id must be below it.
func FromDocs(docs [][]uint32, vocabSize int) (*Corpus, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyCorpus
	}
	maxLen, maxId := 0, -1
	for _, doc := range docs {
		if len(doc) > maxLen {
			maxLen = len(doc)
		}
		for _, w := range doc {
			if int(w) > maxId {
				maxId = int(w)
			}
		}
	}
	if vocabSize == 0 {
		vocabSize = maxId + 1
	}
	if vocabSize <= 0 {
		return nil, fmt.Errorf("corpus: empty vocabulary")
	}
	if maxId >= vocabSize {
		return nil, fmt.Errorf("corpus: word id %d outside vocabulary of size %d",
			maxId, vocabSize)
	}

	// a corpus of empty documents still gets one padding column
	cols := maxLen
	if cols == 0 {
		cols = 1
	}
	c := &Corpus{
		VocabSize: vocabSize,
		DocNum:    len(docs),
		MaxDocLen: maxLen,
		DocLens:   make([]int, len(docs)),
		DocIds:    make([]uint32, len(docs)),
		Words:     matrix.NewUint32Matrix(len(docs), cols),
	}
	for d, doc := range docs {
		c.DocLens[d] = len(doc)
		c.DocIds[d] = uint32(d)
		copy(c.Words.Row(d), doc)
	}
	return c, nil
}

// Load reads documents from fn, the file format should be like:
// [docId wordId:wordCount wordId:wordCount ... wordId:wordCount]
// Documents keep file order and each word is repeated wordCount times.
// Malformed lines and word counts are logged and skipped, DocIds keeps
// the docId of every loaded document. A positive vocabSize
// fixes the vocabulary, e.g. when querying against a trained model.
func Load(fn string, vocabSize int) (*Corpus, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var docs [][]uint32
	var ids []uint32
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		doc := scanner.Text()
		vals := strings.Fields(doc)
		if len(vals) < 2 {
			log.Warningf("bad document: %s", doc)
			continue
		}

		docId, err := strconv.ParseUint(vals[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("corpus: bad document id %q: %w", vals[0], err)
		}

		var wcs []*WordCount
		for _, kv := range vals[1:] {
			wc := strings.Split(kv, ":")
			if len(wc) != 2 {
				log.Warningf("bad word count: %s", kv)
				continue
			}

			wordId, err := strconv.ParseUint(wc[0], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("corpus: bad word id %q: %w", wc[0], err)
			}

			count, err := strconv.ParseUint(wc[1], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("corpus: bad word count %q: %w", wc[1], err)
			}

			wcs = append(wcs, &WordCount{
				WordId: uint32(wordId),
				Count:  uint32(count),
			})
		}
		docs = append(docs, ExpandWords(wcs))
		ids = append(ids, uint32(docId))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	c, err := FromDocs(docs, vocabSize)
	if err != nil {
		return nil, err
	}
	c.DocIds = ids

	log.Infof("number of documents %d", c.DocNum)
	log.Infof("vocabulary size %d", c.VocabSize)
	log.Infof("longest document %d", c.MaxDocLen)
	return c, nil
}

// SaveDocIds writes one document id per line, line d naming row d of the
// document-topic checkpoints.
func (c *Corpus) SaveDocIds(fn string) error {
	out, err := os.OpenFile(fn, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	for _, id := range c.DocIds {
		fmt.Fprintf(w, "%d\n", id)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return out.Close()
}
