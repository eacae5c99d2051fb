package confload

import (
	"encoding/xml"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rok4/tileserver/internal/catalog"
	"github.com/rok4/tileserver/internal/codec"
	"github.com/rok4/tileserver/internal/geom"
)

// Load reads layersDir/*.lay, tmsDir/*.tms, stylesDir/*.stl and
// servicesPath into a fully-populated, validated Catalogue (spec §3.2,
// §3.3: built once at startup, immutable afterwards).
func Load(layersDir, tmsDir, stylesDir, servicesPath string) (*catalog.Catalogue, error) {
	services, equivalence, err := loadServices(servicesPath)
	if err != nil {
		return nil, err
	}
	crsReg, err := geom.NewRegistry(geom.DefaultProjections(), equivalence, 256)
	if err != nil {
		return nil, fmt.Errorf("confload: building CRS registry: %w", err)
	}

	tmsList, err := loadTileMatrixSets(tmsDir, crsReg)
	if err != nil {
		return nil, err
	}

	styles, err := loadStyles(stylesDir)
	if err != nil {
		return nil, err
	}

	layers, pyramids, err := loadLayers(layersDir, tmsList, styles)
	if err != nil {
		return nil, err
	}

	cat := &catalog.Catalogue{
		TileMatrixSets: tmsList,
		Pyramids:       pyramids,
		Layers:         layers,
		Services:       services,
		CRS:            crsReg,
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

func xmlFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("confload: reading %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}

func decodeFile(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("confload: opening %s: %w", path, err)
	}
	defer f.Close()
	if err := xml.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("confload: parsing %s: %w", path, err)
	}
	return nil
}

func loadServices(path string) (catalog.ServicesConfig, [][]string, error) {
	var doc servicesXML
	if err := decodeFile(path, &doc); err != nil {
		return catalog.ServicesConfig{}, nil, err
	}
	var equivalence [][]string
	for _, row := range doc.CRSEquivalenceRows {
		equivalence = append(equivalence, splitCSV(row))
	}
	return catalog.ServicesConfig{
		WMSTitle:           doc.WMSTitle,
		WMSAbstract:        doc.WMSAbstract,
		WMTSTitle:          doc.WMTSTitle,
		WMTSAbstract:       doc.WMTSAbstract,
		Keywords:           doc.Keywords,
		ProviderName:       doc.ProviderName,
		ProviderSite:       doc.ProviderSite,
		Fees:               doc.Fees,
		AccessConstraints:  doc.AccessConstraints,
		FormatList:         doc.FormatList,
		GlobalCRSList:      doc.GlobalCRSList,
		LayerLimit:         doc.LayerLimit,
		MaxWidth:           doc.MaxWidth,
		MaxHeight:          doc.MaxHeight,
		INSPIRE:            doc.INSPIRE,
		RestrictedCRSList:  doc.RestrictedCRSList,
		FeaturePostEnabled: doc.FeaturePostEnabled,
		CRSEquivalence:     equivalence,
	}, equivalence, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func loadTileMatrixSets(dir string, crsReg *geom.Registry) (map[string]*catalog.TileMatrixSet, error) {
	files, err := xmlFiles(dir, ".tms")
	if err != nil {
		return nil, err
	}
	out := make(map[string]*catalog.TileMatrixSet, len(files))
	for _, path := range files {
		var doc tileMatrixSetXML
		if err := decodeFile(path, &doc); err != nil {
			return nil, err
		}
		crs, err := crsReg.Resolve(doc.CRS)
		if err != nil {
			return nil, fmt.Errorf("confload: %s: resolving CRS %q: %w", path, doc.CRS, err)
		}
		matrices := make(map[string]catalog.TileMatrix, len(doc.TileMatrices))
		for _, tm := range doc.TileMatrices {
			matrices[tm.ID] = catalog.TileMatrix{
				ID:         tm.ID,
				Resolution: tm.Resolution,
				X0:         tm.TopLeftCornerX,
				Y0:         tm.TopLeftCornerY,
				TileW:      tm.TileWidth,
				TileH:      tm.TileHeight,
				MatrixW:    tm.MatrixWidth,
				MatrixH:    tm.MatrixHeight,
			}
		}
		out[doc.ID] = &catalog.TileMatrixSet{
			ID:       doc.ID,
			Title:    doc.Title,
			Abstract: doc.Abstract,
			Keywords: doc.Keywords,
			CRS:      crs,
			Matrices: matrices,
		}
	}
	return out, nil
}

func loadStyles(dir string) (map[string]*catalog.Style, error) {
	files, err := xmlFiles(dir, ".stl")
	if err != nil {
		return nil, err
	}
	out := make(map[string]*catalog.Style, len(files))
	for _, path := range files {
		var doc styleXML
		if err := decodeFile(path, &doc); err != nil {
			return nil, err
		}
		var palette *catalog.Palette
		if len(doc.Palette) > 0 {
			entries := make([]catalog.PaletteEntry, len(doc.Palette))
			for i, e := range doc.Palette {
				entries[i] = catalog.PaletteEntry{
					Value: e.Value,
					Color: color.RGBA{R: e.Red, G: e.Green, B: e.Blue, A: e.Alpha},
				}
			}
			p := catalog.NewPalette(entries)
			palette = &p
		}
		out[doc.ID] = &catalog.Style{
			ID:         doc.ID,
			Titles:     doc.Titles,
			Abstracts:  doc.Abstracts,
			Keywords:   doc.Keywords,
			LegendURLs: nil,
			Palette:    palette,
		}
	}
	return out, nil
}

func loadLayers(dir string, tmsList map[string]*catalog.TileMatrixSet, styles map[string]*catalog.Style) (map[string]*catalog.Layer, map[string]*catalog.Pyramid, error) {
	files, err := xmlFiles(dir, ".lay")
	if err != nil {
		return nil, nil, err
	}
	layers := make(map[string]*catalog.Layer, len(files))
	pyramids := make(map[string]*catalog.Pyramid, len(files))

	for _, path := range files {
		var doc layerXML
		if err := decodeFile(path, &doc); err != nil {
			return nil, nil, err
		}

		tms, ok := tmsList[doc.Pyramid.TMSRef]
		if !ok {
			return nil, nil, fmt.Errorf("confload: %s: unknown tileMatrixSet %q", path, doc.Pyramid.TMSRef)
		}

		format := catalog.Format(doc.Pyramid.Format)
		levels := make(map[string]*catalog.Level, len(doc.Pyramid.Levels))
		for _, lvl := range doc.Pyramid.Levels {
			tm, ok := tms.Matrix(lvl.TileMatrix)
			if !ok {
				return nil, nil, fmt.Errorf("confload: %s: level references unknown TileMatrix %q", path, lvl.TileMatrix)
			}
			nodataValues := parseFloats(lvl.NodataValues)
			nodataTile, err := buildNodataTile(format, doc.Pyramid.Channels, tm.TileW, tm.TileH, nodataValues)
			if err != nil {
				return nil, nil, fmt.Errorf("confload: %s: building nodata tile for level %s: %w", path, lvl.TileMatrix, err)
			}
			levels[lvl.TileMatrix] = &catalog.Level{
				TileMatrixID: lvl.TileMatrix,
				TM:           tm,
				Storage: catalog.StorageDescriptor{
					BasePath:  lvl.BasePath,
					SlabW:     lvl.SlabW,
					SlabH:     lvl.SlabH,
					PathDepth: lvl.PathDepth,
				},
				Limits: catalog.TileLimits{
					MinCol: lvl.MinCol, MaxCol: lvl.MaxCol,
					MinRow: lvl.MinRow, MaxRow: lvl.MaxRow,
				},
				Channels:        doc.Pyramid.Channels,
				Format:          format,
				NodataValues:    nodataValues,
				NodataTile:      nodataTile,
				OnDemandSources: lvl.OnDemandSources,
			}
		}

		pyr := &catalog.Pyramid{
			ID:          doc.Pyramid.ID,
			Levels:      levels,
			TMS:         tms,
			Format:      format,
			Channels:    doc.Pyramid.Channels,
			Transparent: doc.Pyramid.Transparent,
			OnDemand:    doc.Pyramid.OnDemand,
		}
		pyramids[pyr.ID] = pyr

		layerStyles := make(map[string]*catalog.Style, len(doc.StyleRefs))
		defaultStyleID := ""
		for i, ref := range doc.StyleRefs {
			st, ok := styles[ref]
			if !ok {
				return nil, nil, fmt.Errorf("confload: %s: unknown style %q", path, ref)
			}
			layerStyles[ref] = st
			if i == 0 {
				defaultStyleID = ref
			}
		}

		layers[doc.ID] = &catalog.Layer{
			ID:             doc.ID,
			Title:          doc.Title,
			Abstract:       doc.Abstract,
			Keywords:       doc.Keywords,
			Pyramid:        pyr,
			Styles:         layerStyles,
			DefaultStyleID: defaultStyleID,
			MinRes:         doc.MinRes,
			MaxRes:         doc.MaxRes,
			WMSCRSList:     doc.WMSCRSList,
			GeographicBBox: toBBox(doc.GeographicBBox, "epsg:4326"),
			NativeBBox:     toBBox(doc.NativeBBox, tms.CRS.Code),
			WMSAuthorised:  doc.WMSAuthorised,
			WMTSAuthorised: doc.WMTSAuthorised,
		}
	}
	return layers, pyramids, nil
}

func toBBox(b bboxXML, srs string) geom.BoundingBox[float64] {
	return geom.BoundingBox[float64]{Xmin: b.Xmin, Ymin: b.Ymin, Xmax: b.Xmax, Ymax: b.Ymax, SRS: srs}
}

func parseFloats(csv string) []float64 {
	if csv == "" {
		return nil
	}
	parts := splitCSV(csv)
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err == nil {
			out = append(out, f)
		}
	}
	return out
}

// buildNodataTile pre-encodes the constant tile served for missing slab
// entries (spec §4.2, §3.2: allocated once at pyramid construction).
func buildNodataTile(format catalog.Format, channels, w, h int, values []float64) ([]byte, error) {
	img := codec.NewImage8(w, h, channels)
	for i := 0; i < w*h; i++ {
		for c := 0; c < channels; c++ {
			v := 0.0
			if c < len(values) {
				v = values[c]
			}
			img.Pix8[i*channels+c] = uint8(v)
		}
	}
	enc, err := codec.EncoderFor(format, 85)
	if err != nil {
		return nil, err
	}
	if err := enc.Reset(img); err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 64*1024)
	for !enc.Eof() {
		n, err := enc.Read(chunk)
		if err != nil {
			return nil, err
		}
		buf = append(buf, chunk[:n]...)
	}
	return buf, nil
}
