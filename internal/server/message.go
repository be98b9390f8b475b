package server

import "fmt"

const (
	MsgNoFace = "We couldn't detect a face in the photo. Please upload a photo where your face is clearly visible, like a headshot."

	MsgMultipleFaces = "We detected %d faces in the photo. Please upload a photo that shows only you."

	MsgSingleFace = "Your face is clearly visible in the photo."
)

func faceValidationMessage(faceCount int) string {
	switch {
	case faceCount == 0:
		return MsgNoFace
	case faceCount == 1:
		return MsgSingleFace
	default:
		return fmt.Sprintf(MsgMultipleFaces, faceCount)
	}
}
