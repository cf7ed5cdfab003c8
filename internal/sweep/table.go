package sweep

import (
	"bufio"
	"io"
	"iter"
	"strconv"
)

// WriteTable writes points as tab-separated rows under a header of
// tp, fp, fn, tn and the two metric names. Values use the shortest
// representation that round-trips.
func WriteTable(w io.Writer, metricA, metricB string, points iter.Seq[Point]) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("tp\tfp\tfn\ttn\t" + metricA + "\t" + metricB + "\n")

	var buf []byte
	for p := range points {
		buf = buf[:0]
		buf = strconv.AppendInt(buf, p.Matrix.TP, 10)
		buf = append(buf, '\t')
		buf = strconv.AppendInt(buf, p.Matrix.FP, 10)
		buf = append(buf, '\t')
		buf = strconv.AppendInt(buf, p.Matrix.FN, 10)
		buf = append(buf, '\t')
		buf = strconv.AppendInt(buf, p.Matrix.TN, 10)
		buf = append(buf, '\t')
		buf = strconv.AppendFloat(buf, p.A, 'g', -1, 64)
		buf = append(buf, '\t')
		buf = strconv.AppendFloat(buf, p.B, 'g', -1, 64)
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}
