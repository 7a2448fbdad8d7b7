package poi

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"poi-heatmap/internal/logger"
)

// 文档注释：本地 CSV 兴趣点源（逗号分隔，表头包含 id/lat/lon）
// 背景：仓库导出的本地快照，离线复跑时替代数据库整表拉取
type CSVSource struct {
	Path string
}

func (s *CSVSource) Fetch(ctx context.Context) ([]Record, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	out, err := ReadRecords(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	logger.L().Info("poi_csv_loaded", "path", s.Path, "rows", len(out))
	return out, nil
}

// ReadRecords：解析兴趣点 CSV；第一列为空表头的行号列会被忽略
func ReadRecords(ctx context.Context, r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, err
	}
	cols, err := findColumns(header, map[string][]string{
		"id":  {"id", "point_id", "osm_id"},
		"lat": {"lat", "latitude"},
		"lon": {"lon", "lng", "longitude"},
	})
	if err != nil {
		return nil, err
	}
	var out []Record
	for line := 2; ; line++ {
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		lat, err := parseCoord(field(rec, cols["lat"]))
		if err != nil {
			return nil, fmt.Errorf("line %d: lat: %w", line, err)
		}
		lon, err := parseCoord(field(rec, cols["lon"]))
		if err != nil {
			return nil, fmt.Errorf("line %d: lon: %w", line, err)
		}
		out = append(out, Record{ID: field(rec, cols["id"]), Lat: lat, Lon: lon})
	}
	return out, nil
}

// 文档注释：读取场馆表（分号分隔、带表头）
// 背景：市政开放数据导出常为 Windows-1252 编码，encoding 指定为 "windows-1252"/"latin1" 时先转码。
// 约束：纬度列 LATITUD/lat/latitude，经度列 LONGITUD/lon/longitude（大小写不敏感）；名称列可缺省。
func ReadVenues(path string, encoding string) ([]Venue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var r io.Reader = f
	switch strings.ToLower(encoding) {
	case "", "utf-8", "utf8":
	case "windows-1252", "cp1252":
		r = transform.NewReader(f, charmap.Windows1252.NewDecoder())
	case "latin1", "iso-8859-1":
		r = transform.NewReader(f, charmap.ISO8859_1.NewDecoder())
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
	vs, err := DecodeVenues(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	logger.L().Info("venues_loaded", "path", path, "rows", len(vs))
	return vs, nil
}

func DecodeVenues(r io.Reader) ([]Venue, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	header, err := cr.Read()
	if err != nil {
		return nil, err
	}
	cols, err := findColumns(header, map[string][]string{
		"lat": {"latitud", "lat", "latitude"},
		"lon": {"longitud", "lon", "lng", "longitude"},
	})
	if err != nil {
		return nil, err
	}
	nameCol := indexOf(header, []string{"nombre", "name", "nombre-instalacion"})
	var out []Venue
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		lat, err := parseCoord(field(rec, cols["lat"]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		lon, err := parseCoord(field(rec, cols["lon"]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, Venue{Name: field(rec, nameCol), Lat: lat, Lon: lon})
	}
	return out, nil
}

func findColumns(header []string, want map[string][]string) (map[string]int, error) {
	out := make(map[string]int, len(want))
	for k, names := range want {
		i := indexOf(header, names)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, k)
		}
		out[k] = i
	}
	return out, nil
}

func indexOf(header []string, names []string) int {
	for _, n := range names {
		for i, h := range header {
			h = strings.TrimPrefix(h, "\ufeff")
			if strings.EqualFold(strings.TrimSpace(h), n) {
				return i
			}
		}
	}
	return -1
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// 坐标解析：接受小数逗号
func parseCoord(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty coordinate")
	}
	return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
}
