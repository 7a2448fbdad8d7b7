// 包 result：聚类结果表（lat, lon, point_id, cluster_id）的写出与读取，是两个阶段之间唯一的交换格式
package result

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var ErrBadHeader = errors.New("result table: missing column")

// Header：输出列顺序
var Header = []string{"lat", "lon", "point_id", "cluster_id"}

// 文档注释：一行聚类结果
type Row struct {
	Lat       float64
	Lon       float64
	PointID   string
	ClusterID int
}

// Write：写出表头与数据行；浮点使用最短可逆格式，读回后数值完全一致
func Write(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	rec := make([]string, 4)
	for _, r := range rows {
		rec[0] = strconv.FormatFloat(r.Lat, 'g', -1, 64)
		rec[1] = strconv.FormatFloat(r.Lon, 'g', -1, 64)
		rec[2] = r.PointID
		rec[3] = strconv.Itoa(r.ClusterID)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile：先写临时文件再重命名，失败时不留下半截结果
func WriteFile(path string, rows []Row) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := Write(f, rows); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Read：按列名定位，容忍前置的行号列与额外列
func Read(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, err
	}
	pos := make(map[string]int, len(Header))
	for i, h := range header {
		pos[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, h := range Header {
		if _, ok := pos[h]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrBadHeader, h)
		}
	}
	var out []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		get := func(k string) string {
			i := pos[k]
			if i >= len(rec) {
				return ""
			}
			return rec[i]
		}
		var row Row
		if row.Lat, err = strconv.ParseFloat(get("lat"), 64); err != nil {
			return nil, fmt.Errorf("line %d: lat: %w", line, err)
		}
		if row.Lon, err = strconv.ParseFloat(get("lon"), 64); err != nil {
			return nil, fmt.Errorf("line %d: lon: %w", line, err)
		}
		row.PointID = get("point_id")
		if row.ClusterID, err = strconv.Atoi(get("cluster_id")); err != nil {
			return nil, fmt.Errorf("line %d: cluster_id: %w", line, err)
		}
		out = append(out, row)
	}
	return out, nil
}

func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

// Labels：结果中出现的最大标签 + 1
func Labels(rows []Row) int {
	k := 0
	for _, r := range rows {
		if r.ClusterID+1 > k {
			k = r.ClusterID + 1
		}
	}
	return k
}
