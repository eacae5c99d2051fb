// Package confload reads the layers/, tileMatrixSet/, styles/ directories
// and a services.xml document into a catalog.Catalogue (spec §1 scope
// note: configuration format is out-of-core but a real catalogue needs a
// real loader). Directory layout and element names are grounded on
// original_source/rok4/ConfLoader.cpp and TileMatrixXML.cpp (one file per
// object, discovered by directory scan and extension), the struct-tag
// unmarshalling idiom on pikkpoiss-tmxgo's tmx.go.
package confload

import "encoding/xml"

type tileMatrixXML struct {
	ID            string  `xml:"id"`
	Resolution    float64 `xml:"resolution"`
	TopLeftCornerX float64 `xml:"topLeftCornerX"`
	TopLeftCornerY float64 `xml:"topLeftCornerY"`
	TileWidth     int     `xml:"tileWidth"`
	TileHeight    int     `xml:"tileHeight"`
	MatrixWidth   int     `xml:"matrixWidth"`
	MatrixHeight  int     `xml:"matrixHeight"`
}

type tileMatrixSetXML struct {
	XMLName      xml.Name         `xml:"tileMatrixSet"`
	ID           string           `xml:"id"`
	Title        string           `xml:"title"`
	Abstract     string           `xml:"abstract"`
	Keywords     []string         `xml:"keywordList>keyword"`
	CRS          string           `xml:"crs"`
	TileMatrices []tileMatrixXML  `xml:"tileMatrix"`
}

type levelXML struct {
	TileMatrix      string   `xml:"tileMatrix"`
	BasePath        string   `xml:"baseDir"`
	SlabW           int      `xml:"slabWidth"`
	SlabH           int      `xml:"slabHeight"`
	PathDepth       int      `xml:"pathDepth"`
	MinCol          int      `xml:"minTileCol"`
	MaxCol          int      `xml:"maxTileCol"`
	MinRow          int      `xml:"minTileRow"`
	MaxRow          int      `xml:"maxTileRow"`
	NodataValues    string   `xml:"noDataValue"` // comma-separated
	// OnDemandSources names this level's composite sources: another pyramid
	// id already loaded into this catalogue, an http(s) URL to a cascaded
	// upstream WMTS endpoint, or a .tif/.tiff path read directly as a
	// source raster with no pre-rendered tiles of its own.
	OnDemandSources []string `xml:"onDemand>pyramid"`
}

type pyramidXML struct {
	XMLName     xml.Name   `xml:"pyramid"`
	ID          string     `xml:"id"`
	TMSRef      string     `xml:"tileMatrixSet"`
	Format      string     `xml:"format"`
	Channels    int        `xml:"channels"`
	Transparent bool       `xml:"transparent"`
	OnDemand    bool       `xml:"onDemand"`
	Levels      []levelXML `xml:"level"`
}

type bboxXML struct {
	Xmin float64 `xml:"xmin,attr"`
	Ymin float64 `xml:"ymin,attr"`
	Xmax float64 `xml:"xmax,attr"`
	Ymax float64 `xml:"ymax,attr"`
}

type layerXML struct {
	XMLName        xml.Name   `xml:"layer"`
	ID             string     `xml:"id"`
	Title          string     `xml:"title"`
	Abstract       string     `xml:"abstract"`
	Keywords       []string   `xml:"keywordList>keyword"`
	Pyramid        pyramidXML `xml:"pyramid"`
	StyleRefs      []string   `xml:"styles>style"`
	MinRes         float64    `xml:"minRes"`
	MaxRes         float64    `xml:"maxRes"`
	WMSCRSList     []string   `xml:"WMSCRSList>crs"`
	GeographicBBox bboxXML    `xml:"geographicBoundingBox"`
	NativeBBox     bboxXML    `xml:"boundingBox"`
	WMSAuthorised  bool       `xml:"wms>authorised"`
	WMTSAuthorised bool       `xml:"wmts>authorised"`
}

type paletteEntryXML struct {
	Value float64 `xml:"value,attr"`
	Red   uint8   `xml:"red,attr"`
	Green uint8   `xml:"green,attr"`
	Blue  uint8   `xml:"blue,attr"`
	Alpha uint8   `xml:"alpha,attr"`
}

type styleXML struct {
	XMLName   xml.Name          `xml:"style"`
	ID        string            `xml:"id"`
	Titles    []string          `xml:"title"`
	Abstracts []string          `xml:"abstract"`
	Keywords  []string          `xml:"keywordList>keyword"`
	Palette   []paletteEntryXML `xml:"palette>colour"`
}

type servicesXML struct {
	XMLName            xml.Name `xml:"services"`
	WMSTitle           string   `xml:"wmsTitle"`
	WMSAbstract        string   `xml:"wmsAbstract"`
	WMTSTitle          string   `xml:"wmtsTitle"`
	WMTSAbstract       string   `xml:"wmtsAbstract"`
	Keywords           []string `xml:"keywordList>keyword"`
	ProviderName       string   `xml:"providerName"`
	ProviderSite       string   `xml:"providerSite"`
	Fees               string   `xml:"fees"`
	AccessConstraints  string   `xml:"accessConstraints"`
	FormatList         []string `xml:"formatList>format"`
	GlobalCRSList      []string `xml:"globalCRSList>crs"`
	LayerLimit         int      `xml:"layerLimit"`
	MaxWidth           int      `xml:"maxWidth"`
	MaxHeight          int      `xml:"maxHeight"`
	INSPIRE            bool     `xml:"inspire"`
	RestrictedCRSList  []string `xml:"restrictedCRSList>crs"`
	FeaturePostEnabled bool     `xml:"featurePostEnabled"`
	CRSEquivalenceRows []string `xml:"crsEquivalence>row"` // each row: comma-separated codes
}
