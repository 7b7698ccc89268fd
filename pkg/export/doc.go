// Package export encodes composited images and writes them to disk.
//
// # Formats
//
// Three formats are supported: PNG (lossless, the default), JPEG (with a
// quality between 0 and 1) and TIFF (deflate-compressed):
//
//	f, _ := export.ParseFormat("jpeg")
//	err := export.Encode(w, img, f, 0.85)
//
// # Multiple Screens
//
// A render may cover several screens at once. The composite then spans the
// bounding box of every screen, and [Partition] cuts it back into one image
// per screen. [PartitionAndWrite] writes those images next to each other,
// numbering the files when there is more than one:
//
//	paths, err := export.PartitionAndWrite(img, screens, "out/wallpaper", export.PNG, 0)
//	// out/wallpaper-1.png, out/wallpaper-2.png
//
// # Storage
//
// [ImageStorageDir] and [ScriptStorageDir] follow the XDG base directory
// layout, and [NextBaseName] returns a fresh file name stem for renders that
// were not given one.
package export
