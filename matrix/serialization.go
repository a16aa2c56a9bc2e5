package matrix

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	log "github.com/golang/glog"
	"gonum.org/v1/gonum/mat"
)

// Serialize writes m to fn. The first line holds the shape as "rows,cols",
// each following line one nonzero cell as "row,col,value".
func Serialize(m mat.Matrix, fn string) error {
	out, err := os.OpenFile(fn, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	r, c := m.Dims()
	// write the matrix shape
	fmt.Fprintf(w, "%d,%d\n", r, c)

	for ridx := 0; ridx < r; ridx += 1 {
		for cidx := 0; cidx < c; cidx += 1 {
			val := m.At(ridx, cidx)
			if val != 0 { // only write out nonzero value
				fmt.Fprintf(w, "%d,%d,%s\n", ridx, cidx,
					strconv.FormatFloat(val, 'g', -1, 64))
			}
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return out.Close()
}

// Deserialize reads a matrix written by Serialize.
func Deserialize(fn string) (*mat.Dense, error) {
	file, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	lineIdx := 0
	var tmp *mat.Dense

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		txt := scanner.Text()
		if lineIdx == 0 {
			row, col, err := parseShape(txt)
			if err != nil {
				return nil, err
			}
			tmp = mat.NewDense(row, col, nil)
			lineIdx += 1
			continue
		}

		value := strings.Split(txt, ",")
		if len(value) != 3 {
			log.Warningf("data corrupted, row %d, data %s", lineIdx, txt)
			lineIdx += 1
			continue
		}
		ridx, err := strconv.Atoi(value[0])
		if err != nil {
			return nil, err
		}
		cidx, err := strconv.Atoi(value[1])
		if err != nil {
			return nil, err
		}
		val, err := strconv.ParseFloat(value[2], 64)
		if err != nil {
			return nil, err
		}
		r, c := tmp.Dims()
		if ridx < 0 || cidx < 0 || ridx >= r || cidx >= c {
			return nil, fmt.Errorf("%w: cell %d,%d outside %dx%d at line %d",
				ErrCorrupted, ridx, cidx, r, c, lineIdx)
		}
		tmp.Set(ridx, cidx, val)

		lineIdx += 1
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if tmp == nil {
		return nil, fmt.Errorf("%w: shape not found in %s", ErrCorrupted, fn)
	}

	return tmp, nil
}

func parseShape(txt string) (int, int, error) {
	shape := strings.Split(txt, ",")
	if len(shape) != 2 {
		return 0, 0, fmt.Errorf("%w: shape not found: %s", ErrCorrupted, txt)
	}
	row, err := strconv.Atoi(shape[0])
	if err != nil {
		return 0, 0, err
	}
	col, err := strconv.Atoi(shape[1])
	if err != nil {
		return 0, 0, err
	}
	if row <= 0 || col <= 0 {
		return 0, 0, fmt.Errorf("%w: %dx%d", ErrBadShape, row, col)
	}
	return row, col, nil
}
