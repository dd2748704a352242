package geometry

// Coordinate frames. Points, vectors, lines and circles carry one of these
// as a type parameter so that pixel and ground coordinates cannot be mixed
// without an explicit conversion through a projection.

// Pixel is the image-plane frame: x to the right, y downwards, origin at the
// top-left pixel.
type Pixel struct{}

// Ground is the field-plane frame in meters, as produced by the camera
// projection.
type Ground struct{}
