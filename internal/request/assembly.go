package request

import (
	"context"
	"fmt"
	"strings"

	"github.com/rok4/tileserver/internal/catalog"
	"github.com/rok4/tileserver/internal/codec"
	"github.com/rok4/tileserver/internal/geom"
	"github.com/rok4/tileserver/internal/imagegraph"
	"github.com/rok4/tileserver/internal/tilesource"
)

// AssembleGetMap builds the lazy image graph for a validated GetMap
// request, following spec §4.5's two assembly recipes (non-reprojected
// and reprojected) and compositing every requested layer bottom to top.
func AssembleGetMap(ctx context.Context, req *GetMapRequest, store *tilesource.DiskStore, cat *catalog.Catalogue, remote *tilesource.RemoteSource, cogSrc *tilesource.CogSource) (imagegraph.Node, error) {
	layers := make([]imagegraph.Node, 0, len(req.Layers))
	for i, layer := range req.Layers {
		node, err := assembleLayer(ctx, layer, req.Styles[i], req.CRS, req.BBox, req.Width, req.Height, store, cat, remote, cogSrc)
		if err != nil {
			return nil, err
		}
		layers = append(layers, node)
	}
	if len(layers) == 1 {
		return layers[0], nil
	}
	return imagegraph.NewExtendedCompound(layers, true, imagegraph.CompositeBlend), nil
}

// assembleLayer builds a single layer's contribution to a GetMap response.
func assembleLayer(ctx context.Context, layer *catalog.Layer, style *catalog.Style, dstCRS geom.CRS, dstBBox geom.BoundingBox[float64], width, height int, store *tilesource.DiskStore, cat *catalog.Catalogue, remote *tilesource.RemoteSource, cogSrc *tilesource.CogSource) (imagegraph.Node, error) {
	pyr := layer.Pyramid
	pyrCRS := pyr.TMS.CRS

	if pyrCRS.Equal(dstCRS) {
		return assembleDirect(ctx, pyr, dstBBox, width, height, store, cat, remote, cogSrc)
	}
	return assembleReprojected(ctx, layer, dstCRS, pyrCRS, dstBBox, width, height, store, cat, remote, cogSrc)
}

// assembleDirect implements spec §4.5's non-reprojected recipe: tile range
// lookup at the level matching the requested resolution, crop+compound,
// optional final resample.
func assembleDirect(ctx context.Context, pyr *catalog.Pyramid, dstBBox geom.BoundingBox[float64], width, height int, store *tilesource.DiskStore, cat *catalog.Catalogue, remote *tilesource.RemoteSource, cogSrc *tilesource.CogSource) (imagegraph.Node, error) {
	resX := dstBBox.Width() / float64(width)
	resY := dstBBox.Height() / float64(height)
	targetRes := resX
	if resY > resX {
		targetRes = resY
	}
	level, err := pyr.BestLevel(targetRes)
	if err != nil {
		return nil, err
	}

	compound, err := compoundOverBBox(ctx, pyr, level, dstBBox, store, cat, remote, cogSrc)
	if err != nil {
		return nil, err
	}
	if compound.Width() == width && compound.Height() == height {
		return compound, nil
	}
	return imagegraph.NewResample(compound, width, height, imagegraph.KernelLinear), nil
}

// assembleReprojected implements spec §4.5's reprojection recipe.
func assembleReprojected(ctx context.Context, layer *catalog.Layer, dstCRS, pyrCRS geom.CRS, dstBBox geom.BoundingBox[float64], width, height int, store *tilesource.DiskStore, cat *catalog.Catalogue, remote *tilesource.RemoteSource, cogSrc *tilesource.CogSource) (imagegraph.Node, error) {
	pyr := layer.Pyramid
	cropBBox, err := geom.ReprojectBBox(dstBBox, dstCRS, pyrCRS, 2)
	if err != nil {
		// spec §7: ReprojectionFailed degrades to an empty image, not an error.
		return imagegraph.NewEmpty(width, height, pyr.Channels, dstBBox, make([]float32, pyr.Channels)), nil
	}

	ratioX := cropBBox.Width() / dstBBox.Width()
	ratioY := cropBBox.Height() / dstBBox.Height()
	ratio := ratioX
	if ratioY > ratio {
		ratio = ratioY
	}
	targetRes := (dstBBox.Width() / float64(width)) * ratio
	if targetRes < layer.MinRes {
		targetRes = layer.MinRes
	}
	if targetRes > layer.MaxRes {
		targetRes = layer.MaxRes
	}

	level, err := pyr.BestLevel(targetRes)
	if err != nil {
		return nil, err
	}

	overW := int(float64(width)*ratioX) + 2
	overH := int(float64(height)*ratioY) + 2
	if overW < 1 {
		overW = 1
	}
	if overH < 1 {
		overH = 1
	}

	compound, err := compoundOverBBox(ctx, pyr, level, cropBBox, store, cat, remote, cogSrc)
	if err != nil {
		return nil, err
	}
	fitted := imagegraph.NewResample(compound, overW, overH, imagegraph.KernelLinear)

	reproj, err := imagegraph.NewReproject(fitted, dstBBox, pyrCRS, dstCRS, width, height, 8, imagegraph.KernelLinear)
	if err != nil {
		return imagegraph.NewEmpty(width, height, pyr.Channels, dstBBox, make([]float32, pyr.Channels)), nil
	}

	if !dstCRS.DefinitionArea.Empty() && !bboxWithin(dstBBox, dstCRS.DefinitionArea) {
		bg := imagegraph.NewEmpty(width, height, pyr.Channels, dstBBox, make([]float32, pyr.Channels))
		return imagegraph.NewExtendedCompound([]imagegraph.Node{bg, reproj}, true, imagegraph.CompositeTopmost), nil
	}
	return reproj, nil
}

func bboxWithin(inner, outer geom.BoundingBox[float64]) bool {
	return inner.Xmin >= outer.Xmin && inner.Xmax <= outer.Xmax &&
		inner.Ymin >= outer.Ymin && inner.Ymax <= outer.Ymax
}

// compoundOverBBox fetches, decodes and crops every tile covering bbox at
// level, assembling them into a single ExtendedCompound node (spec §4.5
// step 2-3).
func compoundOverBBox(ctx context.Context, pyr *catalog.Pyramid, level *catalog.Level, bbox geom.BoundingBox[float64], store *tilesource.DiskStore, cat *catalog.Catalogue, remote *tilesource.RemoteSource, cogSrc *tilesource.CogSource) (imagegraph.Node, error) {
	if level.IsOnDemand() {
		return assembleOnDemand(ctx, level, bbox, store, cat, remote, cogSrc)
	}

	colMin, colMax, rowMin, rowMax := level.TM.TileRange(bbox)

	var tiles []imagegraph.Node
	for row := rowMin; row <= rowMax; row++ {
		for col := colMin; col <= colMax; col++ {
			tile, err := fetchTile(pyr, level, col, row, store)
			if err != nil {
				return nil, err
			}
			tiles = append(tiles, tile)
		}
	}
	if len(tiles) == 0 {
		return imagegraph.NewEmpty(level.TM.TileW, level.TM.TileH, level.Channels, bbox, make([]float32, level.Channels)), nil
	}
	if len(tiles) == 1 {
		return tiles[0], nil
	}
	return imagegraph.NewExtendedCompound(tiles, pyr.Transparent, imagegraph.CompositeTopmost), nil
}

// assembleOnDemand synthesizes a level that carries no physical storage of
// its own (spec §3.1's on-demand pyramid) by compositing the bbox out of
// its OnDemandSources, bottom to top. Each source names one of three
// things: another pyramid already in this catalogue (composited straight
// from its slabs), an http(s) URL to a cascaded upstream WMTS-style tile
// endpoint (fetched through remote), or a local GeoTIFF/COG file read
// directly through cogSrc (grounded on original_source/rok4/Pyramid.h's
// PyramidOnFly, a source with no pre-rendered tiles at all). An
// unresolvable or exhausted source is skipped rather than failing the
// whole request, matching the degrade-to-nodata policy the rest of the
// assembly recipe already follows.
func assembleOnDemand(ctx context.Context, level *catalog.Level, bbox geom.BoundingBox[float64], store *tilesource.DiskStore, cat *catalog.Catalogue, remote *tilesource.RemoteSource, cogSrc *tilesource.CogSource) (imagegraph.Node, error) {
	var sources []imagegraph.Node
	for _, srcID := range level.OnDemandSources {
		if isRemoteSourceRef(srcID) {
			node, err := remoteCompoundOverBBox(ctx, remote, srcID, level, bbox)
			if err != nil {
				continue
			}
			sources = append(sources, node)
			continue
		}

		if srcPyr, ok := cat.Pyramids[srcID]; ok {
			srcLevel, err := srcPyr.BestLevel(level.TM.Resolution)
			if err != nil {
				continue
			}
			node, err := compoundOverBBox(ctx, srcPyr, srcLevel, bbox, store, cat, remote, cogSrc)
			if err != nil {
				return nil, err
			}
			sources = append(sources, node)
			continue
		}

		if isRasterFileRef(srcID) {
			node, err := fetchCogWindow(cogSrc, srcID, level, bbox)
			if err != nil {
				continue
			}
			sources = append(sources, node)
		}
	}
	if len(sources) == 0 {
		return imagegraph.NewEmpty(level.TM.TileW, level.TM.TileH, level.Channels, bbox, make([]float32, level.Channels)), nil
	}
	if len(sources) == 1 {
		return sources[0], nil
	}
	return imagegraph.NewExtendedCompound(sources, true, imagegraph.CompositeTopmost), nil
}

func isRemoteSourceRef(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

func isRasterFileRef(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasSuffix(lower, ".tif") || strings.HasSuffix(lower, ".tiff")
}

// fetchCogWindow reads bbox straight out of a GeoTIFF/COG source file and
// positions it as a single leaf node.
func fetchCogWindow(cogSrc *tilesource.CogSource, path string, level *catalog.Level, bbox geom.BoundingBox[float64]) (imagegraph.Node, error) {
	if cogSrc == nil {
		return nil, fmt.Errorf("request: on-demand source %q requires a COG reader", path)
	}
	img, err := cogSrc.ReadWindow(path, bbox, level.TM.Resolution, level.Channels)
	if err != nil {
		return nil, err
	}
	return imagegraph.NewTileImage(img, bbox), nil
}

// remoteCompoundOverBBox cascades every tile covering bbox at level to an
// upstream WMTS endpoint addressed by baseURL (a cascaded on-demand
// source, spec §3.1), fetching tile by tile and compositing the result
// the same way compoundOverBBox does for a local pyramid.
func remoteCompoundOverBBox(ctx context.Context, remote *tilesource.RemoteSource, baseURL string, level *catalog.Level, bbox geom.BoundingBox[float64]) (imagegraph.Node, error) {
	if remote == nil {
		return nil, fmt.Errorf("request: on-demand source %q requires a remote fetcher", baseURL)
	}
	colMin, colMax, rowMin, rowMax := level.TM.TileRange(bbox)

	var tiles []imagegraph.Node
	for row := rowMin; row <= rowMax; row++ {
		for col := colMin; col <= colMax; col++ {
			node, err := fetchRemoteTile(ctx, remote, baseURL, level, col, row)
			if err != nil {
				continue
			}
			tiles = append(tiles, node)
		}
	}
	if len(tiles) == 0 {
		return imagegraph.NewEmpty(level.TM.TileW, level.TM.TileH, level.Channels, bbox, make([]float32, level.Channels)), nil
	}
	if len(tiles) == 1 {
		return tiles[0], nil
	}
	return imagegraph.NewExtendedCompound(tiles, true, imagegraph.CompositeTopmost), nil
}

// fetchRemoteTile fetches, decodes and positions a single tile from a
// cascaded upstream WMTS endpoint.
func fetchRemoteTile(ctx context.Context, remote *tilesource.RemoteSource, baseURL string, level *catalog.Level, col, row int) (imagegraph.Node, error) {
	x, y := level.TM.TopLeft(col, row)
	tileBBox := geom.BoundingBox[float64]{
		Xmin: x, Ymax: y,
		Xmax: x + float64(level.TM.TileW)*level.TM.Resolution,
		Ymin: y - float64(level.TM.TileH)*level.TM.Resolution,
	}
	tileURL := fmt.Sprintf("%s?SERVICE=WMTS&REQUEST=GetTile&TILEMATRIX=%s&TILEROW=%d&TILECOL=%d", baseURL, level.TileMatrixID, row, col)

	raw, _, err := remote.Fetch(ctx, baseURL, tileURL)
	if err != nil {
		return nil, err
	}
	return decodeTile(raw, level, tileBBox)
}

// fetchTile reads, decodes and positions a single tile as a TileImage leaf
// node, falling back to the level's cached nodata tile on a missing or
// unreadable slab entry (spec §4.3, §7).
func fetchTile(pyr *catalog.Pyramid, level *catalog.Level, col, row int, store *tilesource.DiskStore) (imagegraph.Node, error) {
	x, y := level.TM.TopLeft(col, row)
	tileBBox := geom.BoundingBox[float64]{
		Xmin: x, Ymax: y,
		Xmax: x + float64(level.TM.TileW)*level.TM.Resolution,
		Ymin: y - float64(level.TM.TileH)*level.TM.Resolution,
		SRS:  pyr.TMS.CRS.Code,
	}

	raw, err := store.ReadTile(level.Storage, col, row)
	if err == tilesource.ErrTileMissing {
		raw = level.NodataTile
	} else if err != nil {
		raw = level.NodataTile // TileReadError promoted to nodata (spec §7)
	}
	if raw == nil {
		return imagegraph.NewEmpty(level.TM.TileW, level.TM.TileH, level.Channels, tileBBox, make([]float32, level.Channels)), nil
	}

	node, err := decodeTile(raw, level, tileBBox)
	if err != nil {
		// DecodeError promoted to nodata (spec §7); fall through to an
		// empty tile rather than failing the whole request.
		return imagegraph.NewEmpty(level.TM.TileW, level.TM.TileH, level.Channels, tileBBox, make([]float32, level.Channels)), nil
	}
	return node, nil
}

// decodeTile decodes a single encoded tile's bytes into a positioned
// TileImage leaf node.
func decodeTile(raw []byte, level *catalog.Level, tileBBox geom.BoundingBox[float64]) (imagegraph.Node, error) {
	var img *codec.Image
	var err error
	if level.Format == catalog.FormatBIL {
		// BIL carries no self-describing header; the level already knows
		// the tile's pixel geometry, so decode directly rather than
		// through the Decoder interface (internal/codec/bil.go).
		img, err = codec.DecodeBILInto(raw, level.TM.TileW, level.TM.TileH, level.Channels, false)
	} else {
		var dec codec.Decoder
		dec, err = codec.DecoderFor(level.Format)
		if err == nil {
			img, err = dec.Decode(raw)
		}
	}
	if err != nil {
		return nil, err
	}
	return imagegraph.NewTileImage(img, tileBBox), nil
}
