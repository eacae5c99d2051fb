package confload

import (
	"os"
	"path/filepath"
	"testing"
)

const servicesFixture = `<services>
  <wmsTitle>Test WMS</wmsTitle>
  <formatList><format>image/png</format></formatList>
  <globalCRSList><crs>epsg:3857</crs></globalCRSList>
  <layerLimit>4</layerLimit>
  <maxWidth>4096</maxWidth>
  <maxHeight>4096</maxHeight>
</services>`

const tmsFixture = `<tileMatrixSet>
  <id>PM</id>
  <title>Pseudo Mercator</title>
  <crs>epsg:3857</crs>
  <tileMatrix>
    <id>0</id>
    <resolution>156543.033928</resolution>
    <topLeftCornerX>-20037508.3428</topLeftCornerX>
    <topLeftCornerY>20037508.3428</topLeftCornerY>
    <tileWidth>256</tileWidth>
    <tileHeight>256</tileHeight>
    <matrixWidth>1</matrixWidth>
    <matrixHeight>1</matrixHeight>
  </tileMatrix>
</tileMatrixSet>`

const styleFixture = `<style>
  <id>normal</id>
  <title>Normal</title>
</style>`

const layerFixture = `<layer>
  <id>ortho</id>
  <title>Ortho</title>
  <pyramid>
    <id>ortho-pyramid</id>
    <tileMatrixSet>PM</tileMatrixSet>
    <format>image/png</format>
    <channels>3</channels>
    <level>
      <tileMatrix>0</tileMatrix>
      <baseDir>/data/ortho/0</baseDir>
      <slabWidth>16</slabWidth>
      <slabHeight>16</slabHeight>
      <pathDepth>1</pathDepth>
      <minTileCol>0</minTileCol>
      <maxTileCol>0</maxTileCol>
      <minTileRow>0</minTileRow>
      <maxTileRow>0</maxTileRow>
      <noDataValue>255,255,255</noDataValue>
    </level>
  </pyramid>
  <styles><style>normal</style></styles>
  <minRes>1</minRes>
  <maxRes>1000000</maxRes>
  <WMSCRSList><crs>epsg:3857</crs></WMSCRSList>
  <geographicBoundingBox xmin="-5" ymin="41" xmax="11" ymax="51" />
  <wms><authorised>true</authorised></wms>
  <wmts><authorised>true</authorised></wmts>
</layer>`

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
}

func TestLoadBuildsValidatedCatalogue(t *testing.T) {
	root := t.TempDir()
	layersDir := filepath.Join(root, "layers")
	tmsDir := filepath.Join(root, "tms")
	stylesDir := filepath.Join(root, "styles")
	for _, d := range []string{layersDir, tmsDir, stylesDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}
	servicesPath := filepath.Join(root, "services.xml")
	writeFixture(t, root, "services.xml", servicesFixture)
	writeFixture(t, tmsDir, "pm.tms", tmsFixture)
	writeFixture(t, stylesDir, "normal.stl", styleFixture)
	writeFixture(t, layersDir, "ortho.lay", layerFixture)

	cat, err := Load(layersDir, tmsDir, stylesDir, servicesPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	layer, ok := cat.Layer("ortho")
	if !ok {
		t.Fatal("layer ortho not found")
	}
	if layer.Pyramid == nil || layer.Pyramid.TMS == nil {
		t.Fatal("layer pyramid/tms not wired")
	}
	level, ok := layer.Pyramid.Levels["0"]
	if !ok {
		t.Fatal("level 0 not found")
	}
	if len(level.NodataTile) == 0 {
		t.Error("expected a pre-encoded nodata tile")
	}
	if _, ok := layer.StyleByID("normal"); !ok {
		t.Error("expected style 'normal' to resolve")
	}
}
