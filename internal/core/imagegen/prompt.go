package imagegen

import "fmt"

var roomNames = map[string]string{
	"bedroom":     "bedroom",
	"living-room": "living room",
	"kitchen":     "kitchen",
	"dining-room": "dining room",
	"bathroom":    "bathroom",
	"home-office": "home office",
}

var styleDescriptions = map[string]string{
	"scandinavian": "Scandinavian style with soft lighting and white wood",
	"modern":       "modern style with sleek furniture and clean lines",
	"minimalist":   "minimalist style with simple furniture and clean surfaces",
	"coastal":      "coastal style with light blue and natural textures",
	"industrial":   "industrial style with exposed brick and metal",
	"traditional":  "traditional style with classic furniture",
}

// BuildPrompt turns the form selections into the generation prompt.
// Unknown room types are used verbatim; unknown styles become "<style> style".
func BuildPrompt(roomType, furnitureStyle string) string {
	room, ok := roomNames[roomType]
	if !ok {
		room = roomType
	}
	style, ok := styleDescriptions[furnitureStyle]
	if !ok {
		style = furnitureStyle + " style"
	}
	return fmt.Sprintf("Transform this %s into %s. Keep the layout, make it photorealistic.", room, style)
}
