package filmstrip

// This package defines common methods and operations for producing satellite "filmstrip" composites from a data cube of scenes stored in a gocloud.dev/blob bucket. Common operations include: gathering scenes, compositing scenes in to per-period geomedian rasters, rendering filmstrip visualizations and exporting GeoTIFF rasters.
