/*
Package facemesh locates facial landmarks in an image and measures the pixel distance
between any two of them.

The landmark model itself is not part of this package: it is consumed through the Detector
interface, which returns normalized (0..1) landmark coordinates for every detected face.
The package converts the frame into the color order the model expects, projects the
normalized output into pixel space and optionally renders the results onto the frame.
A pure Go backend built on top of the Pigo face detection library is provided by PigoDetector.

The package also provides a command line interface. To check the supported commands type:

	$ facemesh --help

In case you wish to integrate the API in a self constructed environment here is a simple example:

	package main

	import (
		"fmt"
		"log"

		"github.com/esimov/facemesh"
	)

	func main() {
		det, err := facemesh.NewPigoDetector("")
		if err != nil {
			log.Fatal(err)
		}
		loc, err := facemesh.NewLocator(det, facemesh.WithConfig(facemesh.DefaultConfig()))
		if err != nil {
			log.Fatal(err)
		}
		defer loc.Close()

		frame, faces, err := loc.Locate(img, true)
		if err != nil {
			log.Fatal(err)
		}
		for _, face := range faces {
			m := facemesh.Measure(face[0], face[1], frame)
			fmt.Printf("distance between the pupils: %.2fpx\n", m.Length)
		}
	}
*/
package facemesh
